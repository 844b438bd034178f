package httpx

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the catalog v1 and management v1 surfaces: one
// group per API version, verbs dispatching straight to handler methods with
// no extra indirection.
func RegisterRoutes(app *fiber.App, catalog *CatalogHandlers, mgmt *ManagementHandlers) {
	v1 := app.Group("/catalog/v1")
	v1.Get("/config", catalog.GetConfig)

	wh := v1.Group("/:warehouse")

	wh.Post("/namespaces", catalog.CreateNamespace)
	wh.Get("/namespaces", catalog.ListNamespaces)
	wh.Head("/namespaces/:namespace", catalog.NamespaceExists)
	wh.Get("/namespaces/:namespace", catalog.LoadNamespace)
	wh.Post("/namespaces/:namespace/properties", catalog.UpdateNamespaceProperties)
	wh.Delete("/namespaces/:namespace", catalog.DropNamespace)

	wh.Post("/namespaces/:namespace/tables", catalog.CreateTable)
	wh.Get("/namespaces/:namespace/tables/:table", catalog.LoadTable)
	wh.Post("/namespaces/:namespace/tables/:table", catalog.CommitTable)
	wh.Delete("/namespaces/:namespace/tables/:table", catalog.DropTable)
	wh.Post("/tables/rename", catalog.RenameTable)
	wh.Post("/tables/:table/undrop", catalog.UndropTable)

	wh.Post("/namespaces/:namespace/views", catalog.CreateView)
	wh.Get("/namespaces/:namespace/views/:view", catalog.LoadView)
	wh.Post("/namespaces/:namespace/views/:view", catalog.CommitView)
	wh.Delete("/namespaces/:namespace/views/:view", catalog.DropView)
	wh.Post("/views/rename", catalog.RenameView)
	wh.Post("/views/:view/undrop", catalog.UndropView)

	m1 := app.Group("/management/v1")

	m1.Post("/projects", mgmt.CreateProject)
	m1.Get("/projects", mgmt.ListProjects)
	m1.Get("/projects/:project", mgmt.GetProject)
	m1.Delete("/projects/:project", mgmt.DeleteProject)

	proj := m1.Group("/projects/:project")
	proj.Post("/warehouses", mgmt.CreateWarehouse)
	proj.Get("/warehouses", mgmt.ListWarehouses)
	proj.Get("/warehouses/:warehouse", mgmt.GetWarehouse)
	proj.Post("/warehouses/:warehouse/status", mgmt.UpdateWarehouseStatus)
	proj.Delete("/warehouses/:warehouse", mgmt.DeleteWarehouse)

	m1.Get("/tasks", mgmt.ListTasks)
	m1.Get("/tasks/:task", mgmt.GetTask)
	m1.Post("/tasks/:task/cancel", mgmt.CancelTask)
}
