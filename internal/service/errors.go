package service

import (
	"errors"
	"strings"
)

// Validation errors: rejected before any transaction starts.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrQuantityTooLarge   = errors.New("quantity is too large")
	ErrInvalidMenuID      = errors.New("invalid menu_id")
	ErrInvalidOrderType   = errors.New("invalid order_type")
	ErrMissingTable       = errors.New("table is required")
	ErrMissingCustomer    = errors.New("customer_name is required for TAKEAWAY orders")
	ErrMissingIdentity    = errors.New("a table, customer_name or order_ids is required")
	ErrZeroDelta          = errors.New("delta must not be zero")
	ErrInvalidPaymentType = errors.New("invalid payment_type")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientCash   = errors.New("cash_received is less than the bill total")
	ErrVoidReasonRequired = errors.New("void reason is required")
	ErrInvalidBillStatus  = errors.New("invalid bill status")
	ErrInvalidTableStatus = errors.New("invalid table status")
	ErrInvalidItemStatus  = errors.New("invalid item status")
	ErrSameTable          = errors.New("source and target table must be different")
	ErrMissingStaff       = errors.New("staff id is required")
	ErrNoOpenOrder        = errors.New("no open order for this table or customer")
)

// Not-found errors: the referenced record does not exist.
var (
	ErrTableNotFound     = errors.New("table not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrBillNotFound      = errors.New("bill not found")
	ErrMenuNotFound      = errors.New("menu item not found")
)

// Conflict errors: the request is well formed but the current state refuses it.
var (
	ErrMenuUnavailable     = errors.New("menu items unavailable")
	ErrNothingToReduce     = errors.New("no active items of this menu to reduce")
	ErrDecrementExceeds    = errors.New("cannot reduce more than the active quantity")
	ErrCheckoutConflict    = errors.New("order was closed by another checkout, please reload")
	ErrBillAlreadyVoid     = errors.New("bill is already void")
	ErrItemTransition      = errors.New("item status transition not allowed")
	ErrItemStatusChanged   = errors.New("item status changed, please retry")
	ErrOrderPaid           = errors.New("order is already paid")
	ErrGroupedTableStatus  = errors.New("a merged table must stay OCCUPIED; unmerge it first")
	ErrMoveTargetOccupied  = errors.New("target table already has an open order")
	ErrClosedByAlreadySet  = errors.New("bill already has closed_by")
	ErrClosedByUnsupported = errors.New("bills schema has no closed_by column")
)

// MenuUnavailableError lists the menu entries that blocked an order.
type MenuUnavailableError struct {
	Names []string
}

func (e *MenuUnavailableError) Error() string {
	return ErrMenuUnavailable.Error() + ": " + strings.Join(e.Names, ", ")
}

func (e *MenuUnavailableError) Unwrap() error { return ErrMenuUnavailable }

// Kind classifies service errors for callers.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

var validationErrors = []error{
	ErrEmptyItems, ErrInvalidQuantity, ErrInvalidMenuID, ErrInvalidOrderType,
	ErrMissingTable, ErrMissingCustomer, ErrMissingIdentity, ErrZeroDelta,
	ErrInvalidPaymentType, ErrInvalidAmount, ErrInsufficientCash, ErrVoidReasonRequired,
	ErrInvalidBillStatus, ErrInvalidTableStatus, ErrInvalidItemStatus, ErrSameTable,
	ErrMissingStaff, ErrNoOpenOrder, ErrQuantityTooLarge,
}

var notFoundErrors = []error{
	ErrTableNotFound, ErrOrderNotFound, ErrOrderItemNotFound, ErrBillNotFound, ErrMenuNotFound,
}

var conflictErrors = []error{
	ErrMenuUnavailable, ErrNothingToReduce, ErrDecrementExceeds, ErrCheckoutConflict,
	ErrBillAlreadyVoid, ErrItemTransition, ErrItemStatusChanged, ErrOrderPaid,
	ErrGroupedTableStatus, ErrClosedByAlreadySet, ErrClosedByUnsupported, ErrMoveTargetOccupied,
}

// ErrorKind reports which class err belongs to. Anything unrecognised is
// internal: the transaction was rolled back and nothing was persisted.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return KindValidation
		}
	}
	for _, e := range notFoundErrors {
		if errors.Is(err, e) {
			return KindNotFound
		}
	}
	for _, e := range conflictErrors {
		if errors.Is(err, e) {
			return KindConflict
		}
	}
	return KindInternal
}
