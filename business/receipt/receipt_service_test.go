package receipt

import (
	"context"
	"testing"

	"beverageHub/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct{}

func (fakeUsers) FindByID(ctx context.Context, id uint) (domain.User, error) {
	if id != 7 {
		return domain.User{}, domain.NewError(domain.ErrNotFound, "User not found")
	}
	return domain.User{ID: 7, Name: "Jane", Email: "jane@example.com"}, nil
}

type sentMail struct {
	toEmail, subject, message string
}

type fakeMailer struct {
	sent []sentMail
}

func (m *fakeMailer) SendEmail(toName, toEmail, subject, message string) error {
	m.sent = append(m.sent, sentMail{toEmail, subject, message})
	return nil
}

func TestSendPaymentReceipt(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewReceiptService(fakeUsers{}, mailer)

	err := svc.SendPaymentReceipt(context.Background(), domain.PaymentCompletedEvent{
		Source:             domain.SettlementSourceOrder,
		UserID:             7,
		OrderNumber:        "ORD-1A2B3C4D",
		Amount:             560,
		MpesaReceiptNumber: "QWE987",
	})
	require.NoError(t, err)

	err = svc.SendPaymentReceipt(context.Background(), domain.PaymentCompletedEvent{
		Source:             domain.SettlementSourceWallet,
		UserID:             7,
		Amount:             500,
		MpesaReceiptNumber: "ABC123",
	})
	require.NoError(t, err)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "jane@example.com", mailer.sent[0].toEmail)
	assert.Equal(t, "Payment received for order ORD-1A2B3C4D", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].message, "KES 560.00")
	assert.Equal(t, SubjectWalletTopUp, mailer.sent[1].subject)
	assert.Contains(t, mailer.sent[1].message, "ABC123")
}

func TestSendPaymentReceiptErrors(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewReceiptService(fakeUsers{}, mailer)

	assert.Error(t, svc.SendPaymentReceipt(context.Background(), domain.PaymentCompletedEvent{Source: domain.SettlementSourceWallet, UserID: 9}))
	assert.Error(t, svc.SendPaymentReceipt(context.Background(), domain.PaymentCompletedEvent{Source: "card", UserID: 7}))
	assert.Empty(t, mailer.sent)
}
