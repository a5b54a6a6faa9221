package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/foresy-api/internal/middleware"
)

// Routes groups the handlers and guards mounted by RegisterRoutes.
type Routes struct {
	Auth     *AuthHandler
	OAuth    *OAuthHandler
	Company  *CompanyHandler
	Mission  *MissionHandler
	Cra      *CraHandler
	CraEntry *CraEntryHandler
	Health   *HealthHandler

	Authenticator middleware.Authenticator
	Cras          middleware.CraLoader
	Entries       middleware.EntryLoader
	// RateLimit guards the credential endpoints. Nil disables it.
	RateLimit gin.HandlerFunc
	Log       logrus.FieldLogger
}

// RegisterRoutes mounts /health and the /api/v1 routes on r.
func RegisterRoutes(r *gin.Engine, routes Routes) {
	limited := routes.RateLimit
	if limited == nil {
		limited = func(c *gin.Context) { c.Next() }
	}
	requireAuth := middleware.RequireAuth(routes.Authenticator, routes.Log)
	craAccess := middleware.RequireCraAccess(routes.Cras, routes.Log)
	entryAccess := middleware.RequireCraEntryAccess(routes.Entries, routes.Log)

	r.GET("/health", routes.Health.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/signup", limited, routes.Auth.Signup)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", limited, routes.Auth.Login)
			auth.POST("/refresh", limited, routes.Auth.Refresh)
			auth.DELETE("/logout", requireAuth, routes.Auth.Logout)
			auth.DELETE("/revoke", requireAuth, routes.Auth.Revoke)
			auth.DELETE("/revoke_all", requireAuth, routes.Auth.RevokeAll)
			auth.GET("/me", requireAuth, routes.Auth.GetCurrentUser)
			auth.GET("/:provider/state", routes.OAuth.State)
			auth.POST("/:provider/callback", limited, routes.OAuth.Callback)
		}

		// Company routes (protected)
		companies := api.Group("/companies")
		companies.Use(requireAuth)
		{
			companies.GET("", routes.Company.ListCompanies)
			companies.POST("", routes.Company.CreateCompany)
		}

		// Mission routes (protected)
		missions := api.Group("/missions")
		missions.Use(requireAuth)
		{
			missions.GET("", routes.Mission.ListMissions)
			missions.POST("", routes.Mission.CreateMission)
			missions.GET("/:id", routes.Mission.GetMission)
			missions.PATCH("/:id", routes.Mission.UpdateMission)
			missions.DELETE("/:id", routes.Mission.ArchiveMission)
		}

		// CRA routes (protected, creator only below /:id)
		cras := api.Group("/cras")
		cras.Use(requireAuth)
		{
			cras.GET("", routes.Cra.ListCras)
			cras.POST("", routes.Cra.CreateCra)

			cra := cras.Group("/:id", craAccess)
			{
				cra.GET("", routes.Cra.GetCra)
				cra.PATCH("", routes.Cra.UpdateCra)
				cra.DELETE("", routes.Cra.DeleteCra)
				cra.POST("/submit", routes.Cra.SubmitCra)
				cra.POST("/lock", routes.Cra.LockCra)
				cra.GET("/export", routes.Cra.ExportCra)

				cra.GET("/entries", routes.CraEntry.ListEntries)
				cra.POST("/entries", routes.CraEntry.CreateEntry)
				cra.POST("/entries/suggest", routes.CraEntry.SuggestEntries)
				cra.GET("/entries/:entry_id", entryAccess, routes.CraEntry.GetEntry)
				cra.PATCH("/entries/:entry_id", entryAccess, routes.CraEntry.UpdateEntry)
				cra.DELETE("/entries/:entry_id", entryAccess, routes.CraEntry.DeleteEntry)
			}
		}
	}
}
