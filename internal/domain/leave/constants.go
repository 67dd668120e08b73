package leave

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	CategoryCasual    = "casual"
	CategorySick      = "sick"
	CategoryEarned    = "earned"
	CategoryUnpaid    = "unpaid"
	CategoryMaternity = "maternity"
	CategoryPaternity = "paternity"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryCasual, CategorySick, CategoryEarned, CategoryUnpaid, CategoryMaternity, CategoryPaternity:
		return true
	}
	return false
}
