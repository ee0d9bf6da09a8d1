package types

// NotificationType classifies in-app notifications
type NotificationType string

const (
	NotificationTypeSubscriptionReactivated NotificationType = "assinatura_reativada"
	NotificationTypeSubscriptionSuspended   NotificationType = "assinatura_suspensa"
	NotificationTypeSubscriptionCancelled   NotificationType = "assinatura_cancelada"
	NotificationTypeChargeCreated           NotificationType = "cobranca_gerada"
	NotificationTypeProofSubmitted          NotificationType = "comprovante_enviado"
	NotificationTypeChargeApproved          NotificationType = "cobranca_confirmada"
	NotificationTypeChargeRejected          NotificationType = "comprovante_rejeitado"
	NotificationTypeBatchConfirmed          NotificationType = "lote_enviado"
	NotificationTypeBatchApproved           NotificationType = "lote_aprovado"
	NotificationTypeBatchRejected           NotificationType = "lote_rejeitado"
	NotificationTypeBatchCancelled          NotificationType = "lote_cancelado"
	NotificationTypePlanDowngraded          NotificationType = "plano_rebaixado"
)

// OutboundChannel is an out-of-band delivery channel
type OutboundChannel string

const (
	OutboundChannelEmail    OutboundChannel = "email"
	OutboundChannelWhatsApp OutboundChannel = "whatsapp"
)
