package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminusers "sitecanvas/frontend/adminUsers"
	boqxlsx "sitecanvas/frontend/boq"
	"sitecanvas/frontend/diagrams"
	"sitecanvas/frontend/login"
	projectsapi "sitecanvas/frontend/projects"
	reportsapi "sitecanvas/frontend/reports"
	"sitecanvas/infrastructure/rbac"
)

// RegisterLoginRoutes registers the unauthenticated session routes.
func (s *Server) RegisterLoginRoutes() {
	s.router.Post("/login", login.CreateLoginHandler(s.DB, s.SessionCache, s.UserCache))
	s.router.Post("/logout", login.LogoutHandler(s.DB, s.SessionCache))
}

// addViewRoute grants a read route to every role.
func (s *Server) addViewRoute(code, path string) {
	s.Rbac.Add(rbac.RoleAdmin, code, http.MethodGet, path)
	s.Rbac.Add(rbac.RoleEditor, code, http.MethodGet, path)
	s.Rbac.Add(rbac.RoleViewer, code, http.MethodGet, path)
}

// addEditRoute grants a mutating route to editors; admins bypass the table.
func (s *Server) addEditRoute(code, method, path string) {
	s.Rbac.Add(rbac.RoleAdmin, code, method, path)
	s.Rbac.Add(rbac.RoleEditor, code, method, path)
}

// RegisterAPIRoutes registers the routes any authenticated session can reach
// plus the editor-gated diagram mutations.
func (s *Server) RegisterAPIRoutes(r chi.Router) chi.Router {
	s.addViewRoute("SESSION_ME_VIEW", "/api/me")
	r.Get("/me", login.MeHandler())

	s.addViewRoute("PROJECTS_LIST_VIEW", "/api/projects")
	r.Get("/projects", projectsapi.ProjectsQueryHandler(s.DB))
	s.addViewRoute("PROJECT_VIEW", "/api/projects/*")
	r.Get("/projects/{id}", projectsapi.ProjectQueryHandler(s.DB))
	s.addViewRoute("PROJECT_ACTIVITY_VIEW", "/api/projects/*/activity")
	r.Get("/projects/{id}/activity", projectsapi.ProjectActivityQueryHandler(s.DB))
	s.addViewRoute("PROJECT_PROGRESS_VIEW", "/api/projects/*/progress")
	r.Get("/projects/{id}/progress", reportsapi.ProjectProgressQueryHandler(s.DB))
	s.addViewRoute("PROJECT_REPORT_VIEW", "/api/projects/*/report.pdf")
	r.Get("/projects/{id}/report.pdf", reportsapi.ProjectReportPDFQueryHandler(s.DB, s.BaseURL))

	s.addViewRoute("DIAGRAMS_LIST_VIEW", "/api/diagrams")
	r.Get("/diagrams", diagrams.DiagramsQueryHandler(s.DB))
	s.addViewRoute("DIAGRAM_LATEST_VIEW", "/api/diagrams/latest")
	r.Get("/diagrams/latest", diagrams.LatestDiagramQueryHandler(s.DB))
	s.addViewRoute("DIAGRAM_VIEW", "/api/diagrams/*")
	r.Get("/diagrams/{id}", diagrams.DiagramQueryHandler(s.DB))
	s.addViewRoute("DIAGRAM_BOQ_EXPORT", "/api/diagrams/*/boq.xlsx")
	r.Get("/diagrams/{id}/boq.xlsx", boqxlsx.ExportBOQQueryHandler(s.DB))

	s.addEditRoute("DIAGRAM_CREATE", http.MethodPost, "/api/diagrams")
	r.Post("/diagrams", diagrams.CreateDiagramCommandHandler(s.DB, s.Audit, s.SyncHub))
	s.addEditRoute("DIAGRAM_UPDATE", http.MethodPut, "/api/diagrams/*")
	r.Put("/diagrams/{id}", diagrams.UpdateDiagramCommandHandler(s.DB, s.Audit, s.SyncHub))
	s.addEditRoute("DIAGRAM_DELETE", http.MethodDelete, "/api/diagrams/*")
	r.Delete("/diagrams/{id}", diagrams.DeleteDiagramCommandHandler(s.DB, s.Audit, s.SyncHub))
	s.addEditRoute("DIAGRAM_BOQ_IMPORT", http.MethodPost, "/api/boq/import")
	r.Post("/boq/import", boqxlsx.ImportBOQCommandHandler())

	return r
}

// RegisterAdminRoutes registers admin-only routes. Admin sessions bypass the
// RBAC table, so these need no entries.
func (s *Server) RegisterAdminRoutes(r chi.Router) chi.Router {
	r.Post("/projects", projectsapi.CreateProjectCommandHandler(s.DB, s.Audit))
	r.Put("/projects/{id}", projectsapi.UpdateProjectCommandHandler(s.DB, s.Audit))
	r.Delete("/projects/{id}", projectsapi.DeleteProjectCommandHandler(s.DB, s.Audit))

	r.Get("/admin/users", adminusers.UsersQueryHandler(s.DB))
	r.Post("/admin/users", adminusers.CreateUserCommandHandler(s.DB, s.UserCache, s.Audit))
	r.Put("/admin/users/{id}/role", adminusers.UpdateUserRoleCommandHandler(s.DB, s.Audit))
	return r
}

// RegisterWebsocketRoutes registers the live channels. Both are GET upgrades
// so they pass the CSRF check, and both are open to every authenticated role.
func (s *Server) RegisterWebsocketRoutes(r chi.Router) chi.Router {
	s.addViewRoute("DIAGRAM_SYNC_WS", "/ws/diagrams/*")
	r.Get("/diagrams/{id}", s.SyncHub.Handler())
	s.addViewRoute("DIAGRAM_PRESENCE_WS", "/ws/diagrams/*/presence")
	r.Get("/diagrams/{id}/presence", s.PresenceHub.Handler())
	return r
}
