package models

import (
	"gorm.io/datatypes"
)

// Project is a user's saved flowchart. Timestamps are epoch milliseconds.
type Project struct {
	UserID    string                    `gorm:"primaryKey;type:varchar(255)" json:"-"`
	ID        string                    `gorm:"primaryKey;type:varchar(320)" json:"id"`
	Name      string                    `gorm:"type:varchar(255);not null" json:"name"`
	Code      string                    `gorm:"type:text;not null" json:"code"`
	Nodes     datatypes.JSONSlice[Node] `gorm:"type:jsonb;not null" json:"nodes"`
	Edges     datatypes.JSONSlice[Edge] `gorm:"type:jsonb;not null" json:"edges"`
	UpdatedAt int64                     `gorm:"autoUpdateTime:false;not null;index" json:"updatedAt"`
	IsDeleted bool                      `gorm:"not null;default:false;index" json:"isDeleted"`
	DeletedAt *int64                    `json:"deletedAt,omitempty"`
	ShareID   *string                   `gorm:"type:varchar(64);uniqueIndex" json:"shareId,omitempty"`
	IsPublic  bool                      `gorm:"not null;default:false" json:"isPublic"`
	SharedBy  *string                   `gorm:"type:varchar(255)" json:"sharedBy,omitempty"`
	SharedAt  *int64                    `json:"sharedAt,omitempty"`
}

// Clone returns a deep copy, so callers can keep a pre-mutation snapshot.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Nodes = append(datatypes.JSONSlice[Node]{}, p.Nodes...)
	c.Edges = append(datatypes.JSONSlice[Edge]{}, p.Edges...)
	c.DeletedAt = clonePtr(p.DeletedAt)
	c.ShareID = clonePtr(p.ShareID)
	c.SharedBy = clonePtr(p.SharedBy)
	c.SharedAt = clonePtr(p.SharedAt)
	return &c
}

// Snapshot is the full previousValues payload recorded for update and delete history.
func (p *Project) Snapshot() map[string]any {
	m := map[string]any{
		"name":      p.Name,
		"code":      p.Code,
		"nodes":     []Node(p.Nodes),
		"edges":     []Edge(p.Edges),
		"updatedAt": p.UpdatedAt,
		"isDeleted": p.IsDeleted,
	}
	if p.DeletedAt != nil {
		m["deletedAt"] = *p.DeletedAt
	}
	return m
}

// Content is the name/code/nodes/edges subset recorded on version restore.
func (p *Project) Content() map[string]any {
	return map[string]any{
		"name":  p.Name,
		"code":  p.Code,
		"nodes": []Node(p.Nodes),
		"edges": []Edge(p.Edges),
	}
}

// ShareState is the previousValues payload recorded when share fields change.
func (p *Project) ShareState() map[string]any {
	m := map[string]any{"isPublic": p.IsPublic}
	if p.ShareID != nil {
		m["shareId"] = *p.ShareID
	}
	if p.SharedBy != nil {
		m["sharedBy"] = *p.SharedBy
	}
	if p.SharedAt != nil {
		m["sharedAt"] = *p.SharedAt
	}
	return m
}

// ProjectInput is the payload of a create request.
type ProjectInput struct {
	Name  string  `json:"name" validate:"required,min=1,max=255"`
	Code  *string `json:"code" validate:"required,max=1000000"`
	Nodes []Node  `json:"nodes" validate:"required,max=500,dive"`
	Edges []Edge  `json:"edges" validate:"required,max=1000,dive"`
}

// ProjectUpdate is a partial update; nil fields are left unchanged.
type ProjectUpdate struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Code  *string `json:"code" validate:"omitempty,max=1000000"`
	Nodes *[]Node `json:"nodes" validate:"omitempty,max=500,dive"`
	Edges *[]Edge `json:"edges" validate:"omitempty,max=1000,dive"`
}

// IsEmpty reports whether the update carries no field at all.
func (u ProjectUpdate) IsEmpty() bool {
	return u.Name == nil && u.Code == nil && u.Nodes == nil && u.Edges == nil
}

// ProjectPage is one page of a project listing.
type ProjectPage struct {
	Projects   []Project `json:"projects"`
	NextCursor *string   `json:"nextCursor,omitempty"`
}

// ShareResult is returned when a project is shared.
type ShareResult struct {
	ShareID string `json:"shareId"`
	URL     string `json:"url"`
}

// SharedProject is the public view of a shared project.
type SharedProject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
	ShareID  string `json:"shareId"`
	SharedBy string `json:"sharedBy,omitempty"`
	SharedAt int64  `json:"sharedAt,omitempty"`
}

// PublicView projects the fields that are safe to expose through a share link.
func (p *Project) PublicView() SharedProject {
	v := SharedProject{
		ID:    p.ID,
		Name:  p.Name,
		Code:  p.Code,
		Nodes: []Node(p.Nodes),
		Edges: []Edge(p.Edges),
	}
	if p.ShareID != nil {
		v.ShareID = *p.ShareID
	}
	if p.SharedBy != nil {
		v.SharedBy = *p.SharedBy
	}
	if p.SharedAt != nil {
		v.SharedAt = *p.SharedAt
	}
	return v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
