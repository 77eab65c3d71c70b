package models

import "time"

// Status is an order lifecycle state.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusPaid       Status = "PAID"
	StatusCancelled  Status = "CANCELLED"
)

var statusLabels = map[Status]string{
	StatusNew:        "New",
	StatusInProgress: "In progress",
	StatusDone:       "Done",
	StatusPaid:       "Paid",
	StatusCancelled:  "Cancelled",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal statuses accept no further transition.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusPaid || s == StatusCancelled
}

// Label is the human readable name used in exports.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Order groups line items. CartOwnerID marks the order as its user's current
// cart; the unique index allows at most one per user and is cleared as soon
// as the order leaves NEW.
type Order struct {
	ID          uint        `gorm:"primaryKey"                          json:"id"`
	Status      Status      `gorm:"size:20;not null;default:NEW;index"  json:"status"`
	UserID      *uint       `gorm:"index"                               json:"user_id"`
	CustomerID  *uint       `gorm:"index"                               json:"customer_id"`
	Customer    *Customer   `gorm:"constraint:OnDelete:SET NULL"        json:"customer,omitempty"`
	CartOwnerID *uint       `gorm:"uniqueIndex"                         json:"-"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OwnerUserID resolves the direct owner first, then the customer's user.
// The customer must be preloaded for the second step.
func (o Order) OwnerUserID() *uint {
	if o.UserID != nil {
		return o.UserID
	}
	if o.Customer != nil {
		return o.Customer.OwnerUserID()
	}
	return nil
}

// OrderItem is one menu item line of an order. (order, menu item) is unique;
// adding the same item again increments Quantity.
type OrderItem struct {
	ID         uint      `gorm:"primaryKey"                                        json:"id"`
	OrderID    uint      `gorm:"not null;uniqueIndex:idx_order_items_order_menu"   json:"order_id"`
	Order      *Order    `gorm:"constraint:OnDelete:CASCADE"                       json:"-"`
	MenuItemID uint      `gorm:"not null;uniqueIndex:idx_order_items_order_menu;index" json:"menu_item_id"`
	MenuItem   *MenuItem `gorm:"constraint:OnDelete:RESTRICT"                      json:"menu_item,omitempty"`
	Quantity   int       `gorm:"not null;default:1"                                json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OwnerUserID walks to the parent order, which must be preloaded.
func (i OrderItem) OwnerUserID() *uint {
	if i.Order == nil {
		return nil
	}
	return i.Order.OwnerUserID()
}
