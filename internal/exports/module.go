// Package exports produces spreadsheet reports of jobs for operators.
package exports

import (
	apphttp "fixmate_backend/internal/http"
	"fixmate_backend/platform/validator"
)

// Module is the exports module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(jobs JobSource, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(jobs, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/exports")
	group.GET("/jobs.xlsx", m.handler.ExportJobsXLSX)
	group.GET("/jobs.csv", m.handler.ExportJobsCSV)
}

var _ apphttp.Module = (*Module)(nil)
