package printclient

import "context"

// WebUnavailableMessage is returned by every WebClient operation.
const WebUnavailableMessage = "Printing is not available on this terminal."

// WebClient is the inert client used where no print path exists.
type WebClient struct{}

// NewWeb creates the web client.
func NewWeb() *WebClient { return &WebClient{} }

func (*WebClient) Capability() Capability                { return WebOnly }
func (*WebClient) IsAvailable(context.Context) bool      { return false }
func (*WebClient) TestConnection(context.Context) Result { return fail(WebUnavailableMessage) }

func (*WebClient) PrintReceipt(context.Context, string) Result {
	return fail(WebUnavailableMessage)
}

func (*WebClient) PrintReceiptWithImages(context.Context, string, []byte, []byte) Result {
	return fail(WebUnavailableMessage)
}
