package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	TableStatusEmpty           = "EMPTY"
	TableStatusOccupied        = "OCCUPIED"
	TableStatusAwaitingPayment = "AWAITING_PAYMENT"
)

const (
	OrderItemStatusPending   = "PENDING"
	OrderItemStatusPreparing = "PREPARING"
	OrderItemStatusReady     = "READY"
	OrderItemStatusServed    = "SERVED"
	OrderItemStatusCancelled = "CANCELLED"
)

const (
	BillStatusCompleted = "COMPLETED"
	BillStatusVoid      = "VOID"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	OrderTypeDineIn   = "DINE_IN"
	OrderTypeTakeaway = "TAKEAWAY"
)

const (
	StaffRoleOwner   = "OWNER"
	StaffRoleManager = "MANAGER"
	StaffRoleCashier = "CASHIER"
	StaffRoleServer  = "SERVER"
	StaffRoleKitchen = "KITCHEN"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentTypeCash     = "CASH"
	PaymentTypeQR       = "QR"
	PaymentTypeTransfer = "TRANSFER"
	PaymentTypeCard     = "CARD"
)

// TakeawayTableNumber is the table_number stored on takeaway orders.
const TakeawayTableNumber = 0

func IsTableStatus(s string) bool {
	switch s {
	case TableStatusEmpty, TableStatusOccupied, TableStatusAwaitingPayment:
		return true
	}
	return false
}

func IsOrderItemStatus(s string) bool {
	switch s {
	case OrderItemStatusPending, OrderItemStatusPreparing, OrderItemStatusReady,
		OrderItemStatusServed, OrderItemStatusCancelled:
		return true
	}
	return false
}

func IsBillStatus(s string) bool {
	return s == BillStatusCompleted || s == BillStatusVoid
}

func IsOrderType(s string) bool {
	return s == OrderTypeDineIn || s == OrderTypeTakeaway
}

func IsStaffRole(s string) bool {
	switch s {
	case StaffRoleOwner, StaffRoleManager, StaffRoleCashier, StaffRoleServer, StaffRoleKitchen:
		return true
	}
	return false
}

// IsPaymentType accepts the labels the cashier screen offers.
func IsPaymentType(s string) bool {
	switch s {
	case PaymentTypeCash, PaymentTypeQR, PaymentTypeTransfer, PaymentTypeCard:
		return true
	}
	return false
}
