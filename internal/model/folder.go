package model

import "time"

// Folder groups items. Folders nest through ParentID.
type Folder struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"userId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Color       string    `db:"color" json:"color,omitempty"`
	ParentID    *string   `db:"parent_id" json:"parentId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	// Populated by listing queries.
	ItemCount int `db:"item_count" json:"itemCount"`
}

// Clone returns a copy of the folder.
func (f *Folder) Clone() *Folder {
	if f == nil {
		return nil
	}
	cp := *f
	if f.ParentID != nil {
		p := *f.ParentID
		cp.ParentID = &p
	}
	return &cp
}

// FolderNode is a folder with its children, for tree responses.
type FolderNode struct {
	Folder
	Children []*FolderNode `json:"children"`
}

// BuildFolderTree arranges a flat folder list into root nodes. Folders whose
// parent is missing from the list are treated as roots.
func BuildFolderTree(folders []Folder) []*FolderNode {
	nodes := make(map[string]*FolderNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &FolderNode{Folder: f, Children: []*FolderNode{}}
	}
	roots := []*FolderNode{}
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID != nil {
			if parent, ok := nodes[*f.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
