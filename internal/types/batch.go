package types

// BatchStatus is the state of a grouped payment. Member charges mirror it.
type BatchStatus string

const (
	BatchStatusPending         BatchStatus = "pendente"
	BatchStatusAwaitingApprove BatchStatus = "aguardando_aprovacao"
	BatchStatusPaid            BatchStatus = "pago"
	BatchStatusCancelled       BatchStatus = "cancelado"
)

func (s BatchStatus) String() string {
	return string(s)
}

// IsOpen reports whether the batch still holds its member charges
func (s BatchStatus) IsOpen() bool {
	return s == BatchStatusPending || s == BatchStatusAwaitingApprove
}

// ChargeStatus is the status member charges carry while the batch is in this state
func (s BatchStatus) ChargeStatus() ChargeStatus {
	switch s {
	case BatchStatusAwaitingApprove:
		return ChargeStatusAwaitingApprove
	case BatchStatusPaid:
		return ChargeStatusPaid
	case BatchStatusCancelled:
		return ChargeStatusCancelled
	default:
		return ChargeStatusPending
	}
}
