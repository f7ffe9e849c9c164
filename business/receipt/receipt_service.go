package receipt

import (
	"context"
	"fmt"

	"beverageHub/domain"
	"beverageHub/pkg/logger"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

type NotificationRepository interface {
	SendEmail(toName, toEmail, subject, message string) (err error)
}

type receiptService struct {
	userRepo  UserRepository
	notifRepo NotificationRepository
}

func NewReceiptService(userRepo UserRepository, notifRepo NotificationRepository) *receiptService {
	return &receiptService{
		userRepo:  userRepo,
		notifRepo: notifRepo,
	}
}

const (
	SubjectOrderPaid   = "Payment received for order %s"
	SubjectWalletTopUp = "Your BeverageHub wallet has been topped up"

	EmailBodyOrderPaid   = `Hi %v,</br></br>We received KES %.2f for order %s (M-Pesa receipt %s). We are preparing your drinks.`
	EmailBodyWalletTopUp = `Hi %v,</br></br>KES %.2f has been added to your wallet (M-Pesa receipt %s).`
)

// SendPaymentReceipt e-mails the payer a receipt for a completed payment.
func (s *receiptService) SendPaymentReceipt(ctx context.Context, event domain.PaymentCompletedEvent) error {
	user, err := s.userRepo.FindByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("load payer: %w", err)
	}

	var subject, body string
	switch event.Source {
	case domain.SettlementSourceOrder:
		subject = fmt.Sprintf(SubjectOrderPaid, event.OrderNumber)
		body = fmt.Sprintf(EmailBodyOrderPaid, user.Name, event.Amount, event.OrderNumber, event.MpesaReceiptNumber)
	case domain.SettlementSourceWallet:
		subject = SubjectWalletTopUp
		body = fmt.Sprintf(EmailBodyWalletTopUp, user.Name, event.Amount, event.MpesaReceiptNumber)
	default:
		return fmt.Errorf("unknown payment source %q", event.Source)
	}

	if err := s.notifRepo.SendEmail(user.Name, user.Email, subject, body); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}

	logger.Info("Payment receipt sent", "user_id", user.ID, "source", event.Source, "receipt", event.MpesaReceiptNumber)

	return nil
}
