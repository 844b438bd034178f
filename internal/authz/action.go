// Package authz implements a pluggable ABAC decision point over typed
// actions on typed resources, with mandatory batching and role assumption.
// The external-policy backend here is a generic HTTP decision-point client,
// using an OpenFGA-style resource/action naming scheme without depending on
// any particular policy engine's client SDK.
package authz

// ResourceKind names the resource hierarchy authorization decisions are
// made over (server → project → warehouse → namespace → table/view).
type ResourceKind string

const (
	ResourceServer ResourceKind = "server"
	ResourceProject ResourceKind = "project"
	ResourceWarehouse ResourceKind = "warehouse"
	ResourceNamespace ResourceKind = "namespace"
	ResourceTable ResourceKind = "table"
	ResourceView ResourceKind = "view"
)

// Action is a tagged action within a ResourceKind's action set.
type Action string

const (
	ActionCreateProject Action = "create_project"
	ActionReadProject Action = "read_project"
	ActionDeleteProject Action = "delete_project"
	ActionUpdateProject Action = "update_project"
	ActionListProjects Action = "list_projects"
	ActionListWarehouses Action = "list_warehouses"
	ActionCreateWarehouse Action = "create_warehouse"
	ActionReadWarehouse Action = "read_warehouse"
	ActionUpdateWarehouse Action = "update_warehouse"
	ActionDeleteWarehouse Action = "delete_warehouse"

	ActionCreateNamespace Action = "create_namespace"
	ActionReadNamespace Action = "read_namespace"
	ActionUpdateNamespace Action = "update_namespace"
	ActionDeleteNamespace Action = "delete_namespace"
	ActionListNamespace Action = "list_namespace"

	ActionCreateTable Action = "create_table"
	ActionReadTable Action = "read_table"
	ActionCommitTable Action = "commit_table"
	ActionDropTable Action = "drop_table"
	ActionUndropTable Action = "undrop_table"
	ActionRenameTable Action = "rename_table"

	ActionCreateView Action = "create_view"
	ActionReadView Action = "read_view"
	ActionCommitView Action = "commit_view"
	ActionDropView Action = "drop_view"
	ActionUndropView Action = "undrop_view"
	ActionRenameView Action = "rename_view"
)

// Resource identifies the concrete entity a Check is about.
type Resource struct {
	Kind ResourceKind
	ID string
}

// Check is one (resource, action) pair in a batched authorization request.
type Check struct {
	Resource Resource
	Action Action
}
