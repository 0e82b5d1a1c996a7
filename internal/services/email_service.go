package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/gbertoni/varco/pkg/logger"
)

// CodeSender delivers a one-time login code to an address. Any
// transport satisfying this contract is substitutable; the policy
// engine treats it as opaque.
type CodeSender interface {
	Send(ctx context.Context, toAddress, username, code string, expiresAt time.Time) error
}

// AWSSESCodeSender delivers one-time codes using AWS SES.
type AWSSESCodeSender struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESCodeSender creates a new AWS SES code sender.
func NewAWSSESCodeSender(region, fromAddress string, logger *slog.Logger) (*AWSSESCodeSender, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESCodeSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Send emails the code to the user.
func (s *AWSSESCodeSender) Send(ctx context.Context, toAddress, username, code string, expiresAt time.Time) error {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; padding: 20px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <p>Hello %s,</p>
        <p>Your login code is:</p>
        <div class="code">%s</div>
        <p>It expires in %d minutes and can be used once.</p>
        <p>If you did not try to log in, you can ignore this email.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, username, code, minutes)

	textBody := fmt.Sprintf(`Hello %s,

Your login code is: %s

It expires in %d minutes and can be used once.

If you did not try to log in, you can ignore this email.
`, username, code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your login code"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send login code via SES",
			slog.String("email", pkglogger.SanitizedEmail(toAddress)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("login code sent",
		slog.String("email", pkglogger.SanitizedEmail(toAddress)),
		slog.String("message_id", *result.MessageId))

	return nil
}
