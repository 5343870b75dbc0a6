package types

import "github.com/logicflow/engine/internal/models"

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	UserID  string               `json:"userId"`
	Project *models.ProjectInput `json:"project"`
}

// ProjectAction is the PATCH verb on a project.
type ProjectAction string

const (
	ActionShare   ProjectAction = "share"
	ActionUnshare ProjectAction = "unshare"
)

// PatchProjectRequest is the body of PATCH /api/projects/{id}.
type PatchProjectRequest struct {
	Action ProjectAction `json:"action" validate:"required,oneof=share unshare"`
}

// TraceRequest is the body of POST /api/trace.
type TraceRequest struct {
	Nodes    []models.Node `json:"nodes" validate:"required,max=500,dive"`
	Edges    []models.Edge `json:"edges" validate:"max=1000,dive"`
	MaxSteps int           `json:"maxSteps" validate:"gte=0,lte=10000"`
}
