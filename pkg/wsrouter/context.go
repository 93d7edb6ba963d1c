package wsrouter

import "context"

type messageTypeKey struct{}

func withMessageType(ctx context.Context, messageType string) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, messageType)
}

// GetMessageTypeFromCtx returns the type of the message being handled.
func GetMessageTypeFromCtx(ctx context.Context) string {
	messageType, _ := ctx.Value(messageTypeKey{}).(string)
	return messageType
}
