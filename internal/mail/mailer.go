package mail

import (
	"context"
	"fmt"

	"github.com/velotracker/apiserver/config"
	gomail "github.com/wneessen/go-mail"
)

// Mailer dispatches password-recovery codes to users.
type Mailer interface {
	SendResetCode(ctx context.Context, to, code string) error
}

// SMTPMailer sends recovery mail through a configured SMTP relay.
type SMTPMailer struct {
	client *gomail.Client
	from   string
}

func NewSMTPMailer(cfg config.SMTPConfig) (*SMTPMailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From}, nil
}

func (m *SMTPMailer) SendResetCode(ctx context.Context, to, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject("VeloTracker: Your Password Reset Code")
	msg.SetBodyString(gomail.TypeTextHTML, ResetCodeBody(code))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetCodeBody renders the HTML body carrying the recovery code and
// its 10-minute validity notice.
func ResetCodeBody(code string) string {
	return fmt.Sprintf(`
		<div style="font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; padding: 20px; background-color: #f7f9fc; border-radius: 8px;">
			<div style="max-width: 600px; margin: auto; background-color: #ffffff; padding: 30px; border-radius: 8px; border: 1px solid #e0e4e8;">
				<h2 style="color: #5865f2; margin-bottom: 20px;">Hey there, VeloTracker User!</h2>
				<p style="font-size: 16px; line-height: 1.6; color: #4f5660;">
					Looks like you (or someone who knows your email) requested a password reset for your VeloTracker account.
				</p>
				<p style="font-size: 16px; line-height: 1.6; color: #4f5660;">
					To confirm this request and set up a new password, please use the code below:
				</p>
				<div style="text-align: center; margin: 30px 0;">
					<span style="display: inline-block; background-color: #5865f2; color: #ffffff; font-size: 32px; font-weight: bold; padding: 10px 20px; border-radius: 4px; letter-spacing: 5px;">%s</span>
				</div>
				<p style="font-size: 16px; line-height: 1.6; color: #4f5660;">
					<strong style="color: #e35a34;">Heads up:</strong> This code is only valid for the next <strong>10 minutes</strong>. If you don't use it in time, you'll need to request a new one.
				</p>
				<hr style="border: 0; border-top: 1px solid #e0e4e8; margin: 25px 0;">
				<p style="font-size: 14px; color: #99aab5; text-align: center;">
					Not expecting this email? You can safely ignore it. Your password will remain unchanged.
				</p>
			</div>
		</div>`, code)
}
