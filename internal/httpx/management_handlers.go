package httpx

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/lifecycle"
	"github.com/ironlake-data/catalog/internal/reqctx"
	"github.com/ironlake-data/catalog/internal/taskqueue"
)

// ManagementHandlers implements the management v1 endpoint surface for
// operator-facing CRUD (projects, warehouses) and task introspection,
// following the same handler shape as CatalogHandlers. Role/user management
// and endpoint-statistics are left unimplemented: no domain or lifecycle
// module backs them, and the management API must not expose endpoints with
// nothing behind them.
type ManagementHandlers struct {
	svc *lifecycle.Service
	tasks *taskqueue.Queue
}

func NewManagementHandlers(svc *lifecycle.Service, tasks *taskqueue.Queue) *ManagementHandlers {
	return &ManagementHandlers{svc: svc, tasks: tasks}
}

type projectResponse struct {
	ID string `json:"project-id"`
	Name string `json:"project-name"`
}

func projectToDTO(p *domain.Project) projectResponse {
	return projectResponse{ID: p.ID, Name: p.Name}
}

type createProjectRequest struct {
	Name string `json:"project-name"`
}

func (h *ManagementHandlers) CreateProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	p, err := h.svc.CreateProject(c.UserContext(), actorFromCtx(c), req.Name)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(projectToDTO(p))
}

func (h *ManagementHandlers) GetProject(c *fiber.Ctx) error {
	p, err := h.svc.GetProject(c.UserContext(), actorFromCtx(c), c.Params("project"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(projectToDTO(p))
}

func (h *ManagementHandlers) ListProjects(c *fiber.Ctx) error {
	projects, err := h.svc.ListProjects(c.UserContext(), actorFromCtx(c))
	if err != nil {
		return WithError(c, err)
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectToDTO(p))
	}

	return c.JSON(fiber.Map{"projects": out})
}

func (h *ManagementHandlers) DeleteProject(c *fiber.Ctx) error {
	if err := h.svc.DeleteProject(c.UserContext(), actorFromCtx(c), c.Params("project")); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type warehouseResponse struct {
	ID string `json:"warehouse-id"`
	Name string `json:"warehouse-name"`
	ProjectID string `json:"project-id"`
	Status string `json:"status"`
	Protected bool `json:"protected"`
}

func warehouseToDTO(w *domain.Warehouse) warehouseResponse {
	return warehouseResponse{ID: w.ID, Name: w.Name, ProjectID: w.ProjectID, Status: string(w.Status), Protected: w.Protected}
}

type createWarehouseRequest struct {
	Name string `json:"warehouse-name"`
	StorageProfile storageProfileDTO `json:"storage-profile"`
}

type storageProfileDTO struct {
	Kind string `json:"type"`
	Bucket string `json:"bucket,omitempty"`
	BaseLocation string `json:"base-location"`
	Region string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

func (h *ManagementHandlers) CreateWarehouse(c *fiber.Ctx) error {
	projectID := c.Params("project")

	var req createWarehouseRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	wh, err := h.svc.CreateWarehouse(c.UserContext(), actorFromCtx(c), lifecycle.CreateWarehouseInput{
		ProjectID: projectID,
		Name: req.Name,
		StorageProfile: domain.StorageProfile{
			Kind: domain.ProfileKind(req.StorageProfile.Kind),
			Bucket: req.StorageProfile.Bucket,
			BaseLocation: req.StorageProfile.BaseLocation,
			Region: req.StorageProfile.Region,
			Endpoint: req.StorageProfile.Endpoint,
		},
		TabularDeleteProfile: domain.HardDeleteProfile(),
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(warehouseToDTO(wh))
}

func (h *ManagementHandlers) GetWarehouse(c *fiber.Ctx) error {
	wh, err := h.svc.GetWarehouse(c.UserContext(), actorFromCtx(c), c.Params("project"), c.Params("warehouse"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(warehouseToDTO(wh))
}

func (h *ManagementHandlers) ListWarehouses(c *fiber.Ctx) error {
	var status *domain.WarehouseStatus
	if s := c.Query("warehouseStatus"); s != "" {
		ws := domain.WarehouseStatus(s)
		status = &ws
	}

	warehouses, err := h.svc.ListWarehouses(c.UserContext(), actorFromCtx(c), c.Params("project"), status)
	if err != nil {
		return WithError(c, err)
	}

	out := make([]warehouseResponse, 0, len(warehouses))
	for _, w := range warehouses {
		out = append(out, warehouseToDTO(w))
	}

	return c.JSON(fiber.Map{"warehouses": out})
}

type updateWarehouseStatusRequest struct {
	Status string `json:"status"`
}

func (h *ManagementHandlers) UpdateWarehouseStatus(c *fiber.Ctx) error {
	var req updateWarehouseStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	if err := h.svc.UpdateWarehouseStatus(c.UserContext(), actorFromCtx(c), c.Params("project"), c.Params("warehouse"), domain.WarehouseStatus(req.Status)); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ManagementHandlers) DeleteWarehouse(c *fiber.Ctx) error {
	if err := h.svc.DeleteWarehouse(c.UserContext(), actorFromCtx(c), c.Params("project"), c.Params("warehouse")); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type taskResponse struct {
	ID string `json:"task-id"`
	QueueName string `json:"queue-name"`
	Status string `json:"status"`
	Attempt int `json:"attempt"`
	ScheduledFor string `json:"scheduled-for"`
	WarehouseID *string `json:"warehouse-id,omitempty"`
}

func taskToDTO(t *domain.Task) taskResponse {
	return taskResponse{
		ID: t.ID,
		QueueName: string(t.QueueName),
		Status: string(t.Status),
		Attempt: t.Attempt,
		ScheduledFor: t.ScheduledFor.Format("2006-01-02T15:04:05Z07:00"),
		WarehouseID: t.WarehouseID,
	}
}

// GetTask implements the task-details half of "task introspection
// (list/details/control)".
func (h *ManagementHandlers) GetTask(c *fiber.Ctx) error {
	t, err := h.tasks.Get(c.UserContext(), c.Params("task"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(taskToDTO(t))
}

// ListTasks implements the list half, scoped to the caller's project and
// optionally narrowed by queue name and status via query parameters.
func (h *ManagementHandlers) ListTasks(c *fiber.Ctx) error {
	projectID, err := reqctx.RequireProjectID(nil, reqctx.FromContext(c.UserContext()), "")
	if err != nil {
		return WithError(c, err)
	}

	var qn *domain.QueueName
	if q := c.Query("queueName"); q != "" {
		v := domain.QueueName(q)
		qn = &v
	}

	var status *domain.TaskStatus
	if s := c.Query("status"); s != "" {
		v := domain.TaskStatus(s)
		status = &v
	}

	tasks, err := h.tasks.List(c.UserContext(), projectID, qn, status, taskqueue.Page{Limit: 50})
	if err != nil {
		return WithError(c, err)
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToDTO(t))
	}

	return c.JSON(fiber.Map{"tasks": out})
}

// CancelTask implements the control half. Cancel keys on (queue, idempotency
// key) rather than task id, so this loads the task first to recover those
// fields.
func (h *ManagementHandlers) CancelTask(c *fiber.Ctx) error {
	t, err := h.tasks.Get(c.UserContext(), c.Params("task"))
	if err != nil {
		return WithError(c, err)
	}

	if err := h.tasks.Cancel(c.UserContext(), t.QueueName, t.IdempotencyKey, c.QueryBool("force", false)); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
