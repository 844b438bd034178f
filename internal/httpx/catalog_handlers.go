package httpx

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ironlake-data/catalog/internal/catalogstore"
	"github.com/ironlake-data/catalog/internal/domain"
	"github.com/ironlake-data/catalog/internal/lifecycle"
	"github.com/ironlake-data/catalog/internal/reqctx"
	"github.com/ironlake-data/catalog/internal/storage"
)

// CatalogHandlers implements the Iceberg REST catalog v1 endpoints mounted by
// RegisterRoutes: namespace/table/view CRUD, commits, renames, undrops and
// the config endpoint. There is no multi-table transactions endpoint, and
// tables and views cannot be listed. Handlers follow a request decode /
// authorize-by-delegation /
// status-code shape dispatching onto lifecycle.Service's operations.
type CatalogHandlers struct {
	svc *lifecycle.Service
	defaultProjectID string
}

func NewCatalogHandlers(svc *lifecycle.Service, defaultProjectID string) *CatalogHandlers {
	return &CatalogHandlers{svc: svc, defaultProjectID: defaultProjectID}
}

func (h *CatalogHandlers) projectID(c *fiber.Ctx) (string, error) {
	var explicit *string
	if v := c.Get("x-project-id"); v != "" {
		explicit = &v
	}

	return reqctx.RequireProjectID(explicit, reqctx.FromContext(c.UserContext()), h.defaultProjectID)
}

func actorFromCtx(c *fiber.Ctx) domain.Actor {
	return reqctx.FromContext(c.UserContext()).Actor
}

// GetConfig implements `GET /catalog/v1/config`.
func (h *CatalogHandlers) GetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"defaults": fiber.Map{},
		"overrides": fiber.Map{},
	})
}

func (h *CatalogHandlers) CreateNamespace(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req createNamespaceRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	ns, err := h.svc.CreateNamespace(c.UserContext(), actorFromCtx(c), lifecycle.CreateNamespaceInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		Path: domain.NamespaceIdent(req.Namespace),
		Properties: req.Properties,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(namespaceResponse{Namespace: ns.Path, Properties: ns.Properties})
}

func (h *CatalogHandlers) LoadNamespace(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	ns, err := h.svc.GetNamespace(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(namespaceResponse{Namespace: ns.Path, Properties: ns.Properties})
}

func (h *CatalogHandlers) NamespaceExists(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	if err := h.svc.NamespaceExists(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace"))); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) ListNamespaces(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	page := pageFromQuery(c)

	var parent domain.NamespaceIdent
	if p := c.Query("parent"); p != "" {
		parent = splitNamespace(p)
	}

	namespaces, err := h.svc.ListNamespaces(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), parent, page)
	if err != nil {
		return WithError(c, err)
	}

	out := listNamespacesResponse{Namespaces: make([][]string, 0, len(namespaces))}
	for _, n := range namespaces {
		out.Namespaces = append(out.Namespaces, n.Path)
	}

	return c.JSON(out)
}

func (h *CatalogHandlers) UpdateNamespaceProperties(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req updateNamespacePropertiesRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	if _, err := h.svc.UpdateNamespaceProperties(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")), req.Removals, req.Updates); err != nil {
		return WithError(c, err)
	}

	updated := make([]string, 0, len(req.Updates))
	for k := range req.Updates {
		updated = append(updated, k)
	}

	return c.JSON(updateNamespacePropertiesResponse{Updated: updated, Removed: req.Removals})
}

func (h *CatalogHandlers) DropNamespace(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	if err := h.svc.DropNamespace(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace"))); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) CreateTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req createTableRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	in := lifecycle.CreateTableInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		Namespace: splitNamespace(c.Params("namespace")),
		Name: req.Name,
		Schema: schemaFromDTO(req.Schema),
		Properties: req.Properties,
		StageCreate: req.StageCreate,
		Location: req.Location,
	}

	if req.PartitionSpec != nil {
		in.PartitionSpec = partitionSpecFromDTO(*req.PartitionSpec)
	}

	if req.WriteOrder != nil {
		in.SortOrder = sortOrderFromDTO(*req.WriteOrder)
	}

	table, err := h.svc.CreateTable(c.UserContext(), actorFromCtx(c), in)
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tableToLoadResponse(table, nil))
}

func (h *CatalogHandlers) LoadTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	table, cfg, err := h.svc.LoadTable(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")), c.Params("table"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(tableToLoadResponse(table, cfg))
}

func tableToLoadResponse(table *domain.Table, cfg *storage.TableConfig) loadTableResponse {
	resp := loadTableResponse{Metadata: tableMetadataToDTO(table.Metadata)}
	if table.MetadataFileLocation != nil {
		resp.MetadataLocation = *table.MetadataFileLocation
	}

	if cfg != nil {
		merged := map[string]string{}

		for k, v := range cfg.Config {
			merged[k] = v
		}

		for k, v := range cfg.Credentials {
			merged[k] = v
		}

		resp.Config = merged
	}

	return resp
}

func (h *CatalogHandlers) CommitTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req commitTableRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	reqs, err := decodeRequirements(req.Requirements)
	if err != nil {
		return WithError(c, err)
	}

	updates, err := decodeUpdates(req.Updates)
	if err != nil {
		return WithError(c, err)
	}

	table, err := h.svc.CommitTable(c.UserContext(), actorFromCtx(c), lifecycle.CommitTableInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		Namespace: splitNamespace(c.Params("namespace")),
		Name: c.Params("table"),
		Requirements: reqs,
		Updates: updates,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(tableToLoadResponse(table, nil))
}

func (h *CatalogHandlers) DropTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	purge := c.QueryBool("purgeRequested", false)

	if err := h.svc.DropTable(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")), c.Params("table"), purge); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) RenameTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	err = h.svc.RenameTable(c.UserContext(), actorFromCtx(c), lifecycle.RenameTableInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		SourceNS: domain.NamespaceIdent(req.Source.Namespace),
		SourceName: req.Source.Name,
		DestinationNS: domain.NamespaceIdent(req.Destination.Namespace),
		DestinationNam: req.Destination.Name,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) UndropTable(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	if err := h.svc.UndropTable(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), c.Params("table")); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) CreateView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req createViewRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	var query, dialect string
	if len(req.ViewVersion.Representations) > 0 {
		query = req.ViewVersion.Representations[0].SQL
		dialect = req.ViewVersion.Representations[0].Dialect
	}

	view, err := h.svc.CreateView(c.UserContext(), actorFromCtx(c), lifecycle.CreateViewInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		Namespace: splitNamespace(c.Params("namespace")),
		Name: req.Name,
		Schema: schemaFromDTO(req.Schema),
		Query: query,
		Dialect: dialect,
		Properties: req.Properties,
		Location: req.Location,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(loadViewResponse{MetadataLocation: view.MetadataFileLocation, Metadata: viewMetadataToDTO(view.Metadata)})
}

func (h *CatalogHandlers) LoadView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	view, err := h.svc.LoadView(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")), c.Params("view"))
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(loadViewResponse{MetadataLocation: view.MetadataFileLocation, Metadata: viewMetadataToDTO(view.Metadata)})
}

func (h *CatalogHandlers) CommitView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req commitViewRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	expected, query, dialect, schema, props, err := extractViewCommit(req)
	if err != nil {
		return WithError(c, err)
	}

	view, err := h.svc.CommitView(c.UserContext(), actorFromCtx(c), lifecycle.CommitViewInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		Namespace: splitNamespace(c.Params("namespace")),
		Name: c.Params("view"),
		ExpectedVersion: expected,
		Schema: schema,
		Query: query,
		Dialect: dialect,
		Properties: props,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.JSON(loadViewResponse{MetadataLocation: view.MetadataFileLocation, Metadata: viewMetadataToDTO(view.Metadata)})
}

// viewWireUpdate is the view-commit update family, distinct from the
// table-commit UpdateKind family decodeUpdates handles: views commit by
// appending one new ViewVersion rather than applying a generic update list.
type viewWireUpdate struct {
	Action string `json:"action"`
	ViewID string `json:"view-uuid,omitempty"`
	VersionID int `json:"view-version-id,omitempty"`
	Schema *schemaDTO `json:"schema,omitempty"`
	ViewVer *struct {
		SchemaID int `json:"schema-id"`
		Representations []viewRepresentationDTO `json:"representations"`
		DefaultNS []string `json:"default-namespace"`
	} `json:"view-version,omitempty"`
	Updates map[string]string `json:"updates,omitempty"`
	Removals []string `json:"removals,omitempty"`
}

type viewWireRequirement struct {
	Type string `json:"type"`
	UUID string `json:"uuid,omitempty"`
	VersionID *int `json:"current-view-version-id,omitempty"`
}

// extractViewCommit pulls the fields CommitView needs out of the raw
// requirements/updates pair: the current-view-version-id field carried on an
// assert-view-uuid requirement supplies the optimistic-concurrency
// ExpectedVersion, and the
// add-view-version update supplies the new definition.
func extractViewCommit(req commitViewRequest) (expectedVersion int64, query, dialect string, schema domain.Schema, props map[string]string, err error) {
	props = map[string]string{}

	for _, raw := range req.Requirements {
		var r viewWireRequirement
		if err := json.Unmarshal(raw, &r); err != nil {
			return 0, "", "", domain.Schema{}, nil, domain.ValidationError{Code: "malformed_requirement", Message: "malformed view commit requirement", Err: err}
		}

		if r.Type == "assert-view-uuid" && r.VersionID != nil {
			expectedVersion = int64(*r.VersionID)
		}
	}

	for _, raw := range req.Updates {
		var u viewWireUpdate
		if err := json.Unmarshal(raw, &u); err != nil {
			return 0, "", "", domain.Schema{}, nil, domain.ValidationError{Code: "malformed_update", Message: "malformed view commit update", Err: err}
		}

		switch u.Action {
		case "add-schema":
			if u.Schema != nil {
				schema = schemaFromDTO(*u.Schema)
			}
		case "add-view-version":
			if u.ViewVer != nil {
				if len(u.ViewVer.Representations) > 0 {
					query = u.ViewVer.Representations[0].SQL
					dialect = u.ViewVer.Representations[0].Dialect
				}
			}
		case "set-properties":
			for k, v := range u.Updates {
				props[k] = v
			}
		case "remove-properties":
			for _, k := range u.Removals {
				delete(props, k)
			}
		}
	}

	return expectedVersion, query, dialect, schema, props, nil
}

func (h *CatalogHandlers) DropView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	purge := c.QueryBool("purgeRequested", false)

	if err := h.svc.DropView(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), splitNamespace(c.Params("namespace")), c.Params("view"), purge); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) RenameView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, domain.ValidationError{Code: "malformed_body", Message: "malformed request body", Err: err})
	}

	err = h.svc.RenameView(c.UserContext(), actorFromCtx(c), lifecycle.RenameTableInput{
		ProjectID: projectID,
		WarehouseID: c.Params("warehouse"),
		SourceNS: domain.NamespaceIdent(req.Source.Namespace),
		SourceName: req.Source.Name,
		DestinationNS: domain.NamespaceIdent(req.Destination.Namespace),
		DestinationNam: req.Destination.Name,
	})
	if err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandlers) UndropView(c *fiber.Ctx) error {
	projectID, err := h.projectID(c)
	if err != nil {
		return WithError(c, err)
	}

	if err := h.svc.UndropView(c.UserContext(), actorFromCtx(c), projectID, c.Params("warehouse"), c.Params("view")); err != nil {
		return WithError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func pageFromQuery(c *fiber.Ctx) catalogstore.Page {
	page := catalogstore.Page{Limit: catalogstore.DefaultPageLimit}

	if ps := c.Query("pageSize"); ps != "" {
		if n, err := strconv.ParseInt(ps, 10, 64); err == nil && n > 0 {
			page.Limit = n
		}
	}

	if tok := c.Query("pageToken"); tok != "" {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil && n > 0 {
			page.Offset = n
		}
	}

	return page
}
