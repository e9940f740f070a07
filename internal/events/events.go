// Package events defines the domain events published after a mutation
// commits, and the dispatcher that delivers them to subscribers.
package events

import (
	"time"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// Topic names a stream of events.
type Topic string

const (
	TopicItemCreated     Topic = "item.created"
	TopicItemUpdated     Topic = "item.updated"
	TopicItemDeleted     Topic = "item.deleted"
	TopicQuantityChanged Topic = "item.quantity_changed"
	TopicFolderCreated   Topic = "folder.created"
	TopicFolderUpdated   Topic = "folder.updated"
	TopicFolderDeleted   Topic = "folder.deleted"
	TopicBulkOperation   Topic = "bulk.operation"
	TopicSystemAlert     Topic = "system.alert"
	TopicTagChanged      Topic = "tag.changed"
	TopicUserEvent       Topic = "user.event"
	TopicSettingsChanged Topic = "settings.changed"
)

// AllTopics lists every topic.
var AllTopics = []Topic{
	TopicItemCreated,
	TopicItemUpdated,
	TopicItemDeleted,
	TopicQuantityChanged,
	TopicFolderCreated,
	TopicFolderUpdated,
	TopicFolderDeleted,
	TopicBulkOperation,
	TopicSystemAlert,
	TopicTagChanged,
	TopicUserEvent,
	TopicSettingsChanged,
}

// Actor identifies who caused an event and from where.
type Actor struct {
	UserID    string
	IP        string
	UserAgent string
}

// Header is embedded in every event.
type Header struct {
	Actor Actor
	At    time.Time
}

// EventHeader returns the header. It lets subscribers read the actor
// without switching on the concrete type.
func (h Header) EventHeader() Header { return h }

// NewHeader stamps an event header with the current UTC time.
func NewHeader(actor Actor) Header {
	return Header{Actor: actor, At: time.Now().UTC()}
}

// Event is implemented by every event variant.
type Event interface {
	Topic() Topic
	EventHeader() Header
}

// ItemCreated is published after an item is inserted.
type ItemCreated struct {
	Header
	Item *model.Item
}

// ItemUpdated is published after an item changes. Action is the activity
// action (update, move, image_add, image_remove, barcode_change).
type ItemUpdated struct {
	Header
	Before  *model.Item
	After   *model.Item
	Action  string
	Changes map[string]any
}

// ItemDeleted is published after an item is deleted.
type ItemDeleted struct {
	Header
	Item *model.Item
}

// QuantityChanged is published after an item's quantity is set or adjusted.
type QuantityChanged struct {
	Header
	Item     *model.Item
	Previous int
	Next     int
	Reason   string
}

// FolderCreated is published after a folder is inserted.
type FolderCreated struct {
	Header
	Folder *model.Folder
}

// FolderUpdated is published after a folder changes.
type FolderUpdated struct {
	Header
	Before  *model.Folder
	After   *model.Folder
	Changes map[string]any
}

// FolderDeleted is published after a folder is deleted. UnfiledItems are
// the items moved to the root as a consequence.
type FolderDeleted struct {
	Header
	Folder       *model.Folder
	UnfiledItems []string
}

// BulkOperation is published once per bulk request, however many items it
// touched.
type BulkOperation struct {
	Header
	Operation string
	Count     int
	ItemIDs   []string
	Details   map[string]any
}

// SystemAlert asks for a system alert to be raised for a user.
type SystemAlert struct {
	Header
	UserID   string
	Title    string
	Message  string
	Priority string
	Details  map[string]any
}

// TagChanged is published after a tag is created, updated or deleted.
type TagChanged struct {
	Header
	Action        string
	Tag           *model.Tag
	OldName       string
	AffectedItems int
}

// UserEvent is published for account actions: register, login, logout,
// password and profile changes.
type UserEvent struct {
	Header
	Action  string
	User    *model.User
	Details map[string]any
}

// SettingsChanged is published after a user's settings are updated or
// reset.
type SettingsChanged struct {
	Header
	Action  string
	Changes map[string]any
}

func (ItemCreated) Topic() Topic     { return TopicItemCreated }
func (ItemUpdated) Topic() Topic     { return TopicItemUpdated }
func (ItemDeleted) Topic() Topic     { return TopicItemDeleted }
func (QuantityChanged) Topic() Topic { return TopicQuantityChanged }
func (FolderCreated) Topic() Topic   { return TopicFolderCreated }
func (FolderUpdated) Topic() Topic   { return TopicFolderUpdated }
func (FolderDeleted) Topic() Topic   { return TopicFolderDeleted }
func (BulkOperation) Topic() Topic   { return TopicBulkOperation }
func (SystemAlert) Topic() Topic     { return TopicSystemAlert }
func (TagChanged) Topic() Topic      { return TopicTagChanged }
func (UserEvent) Topic() Topic       { return TopicUserEvent }
func (SettingsChanged) Topic() Topic { return TopicSettingsChanged }
