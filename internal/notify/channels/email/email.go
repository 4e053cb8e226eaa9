package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"aftersales/internal/notify"
)

// Channel delivers notifications over email through Amazon SES.
type Channel struct {
	client *sesv2.Client
	from   string
}

func New(cfg aws.Config, from string) (*Channel, error) {
	if from == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	return &Channel{
		client: sesv2.NewFromConfig(cfg),
		from:   from,
	}, nil
}

func (c *Channel) Type() notify.ChannelType {
	return notify.ChannelEmail
}

func (c *Channel) Send(ctx context.Context, recipient string, msg notify.Message) error {
	_, err := c.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
