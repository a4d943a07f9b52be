package submission

import (
	"context"
	"fmt"
	"strings"

	"application-distribution/internal/common/logger"
)

// Notice tells a recipient which numbers were issued to them.
type Notice struct {
	MobileNumber string
	Kind         string
	AppStartNo   int
	AppEndNo     int
	Range        int
}

// SMSSender is satisfied by aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

// SMSNotifier texts the recipient after a successful create or update.
type SMSNotifier struct {
	sms           SMSSender
	countryPrefix string
	logger        logger.Logger
}

func NewSMSNotifier(sms SMSSender, countryPrefix string, log logger.Logger) *SMSNotifier {
	return &SMSNotifier{
		sms:           sms,
		countryPrefix: countryPrefix,
		logger:        log.WithFields(map[string]interface{}{"component": "sms-notifier"}),
	}
}

// Notify sends one SMS. A notice without a mobile number is skipped.
func (n *SMSNotifier) Notify(ctx context.Context, notice Notice) error {
	phone := n.e164(notice.MobileNumber)
	if phone == "" {
		n.logger.Debug("no mobile number, skipping sms", map[string]interface{}{"kind": notice.Kind})
		return nil
	}

	msg := fmt.Sprintf("Application numbers %d to %d (%d forms) have been issued to you.",
		notice.AppStartNo, notice.AppEndNo, notice.Range)
	id, err := n.sms.SendSMS(ctx, phone, msg)
	if err != nil {
		return fmt.Errorf("send distribution sms: %w", err)
	}
	n.logger.Info("distribution sms sent", map[string]interface{}{"messageId": id, "kind": notice.Kind})
	return nil
}

func (n *SMSNotifier) e164(mobile string) string {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" || strings.HasPrefix(mobile, "+") {
		return mobile
	}
	return n.countryPrefix + mobile
}
