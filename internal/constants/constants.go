package constants

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeySessionID = "session_id"
	ContextKeyUser      = "current_user"
	ContextKeySession   = "current_session"
	ContextKeyCra       = "cra"
	ContextKeyCraEntry  = "cra_entry"
)

// Session cookie used for OAuth state
const (
	SessionCookieName = "foresy_session"
	SessionKeyOAuth   = "oauth_state"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength            = 8
	MaxMissionDescriptionLength  = 2000
	MaxCraDescriptionLength      = 2000
	MaxEntryDescriptionLength    = 500
	MaxDailyRateCents      int64 = 100_000_000
	MaxFixedPriceCents     int64 = 1_000_000_000
	MinCraYear                   = 2000
	MaxCraYear                   = 2100
	DefaultCurrency              = "EUR"
	DefaultCountry               = "FR"
	DefaultOAuthUserName         = "OAuth User"
	MaxSuggestedEntries          = 31
	MaxSuggestionTextLength      = 5000
)
