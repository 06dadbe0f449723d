package cart

import "context"

// RemoteCart is the server-side cart the manager mirrors to and reconciles with.
type RemoteCart interface {
	List(ctx context.Context) ([]RemoteLine, error)
	// Add returns the server's resulting line for productID.
	Add(ctx context.Context, productID int64, quantity int) (RemoteLine, error)
	Remove(ctx context.Context, productID int64) error
	Clear(ctx context.Context) error
	ValidateForCheckout(ctx context.Context) (RemoteValidation, error)
}

// RemoteCheckout creates hosted payment sessions.
type RemoteCheckout interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// RemoteValidation is the server's checkout verdict.
type RemoteValidation struct {
	Valid       bool
	Unavailable []RemoteLine
	Message     string
}

// Validation is the checkout verdict handed to the UI.
type Validation struct {
	Valid            bool   `json:"valid"`
	UnavailableItems []Line `json:"unavailableItems"`
	Message          string `json:"message,omitempty"`
	// Source is "remote" when the server decided, "local" otherwise.
	Source string `json:"source"`
}

// CheckoutScope selects what the checkout session is created from.
type CheckoutScope string

const (
	// CheckoutScopeServerCart checks out the entire server-side cart.
	CheckoutScopeServerCart CheckoutScope = "server_cart"
	// CheckoutScopeSelected additionally sends the locally selected product ids.
	CheckoutScopeSelected CheckoutScope = "selected"
)

func (s CheckoutScope) valid() bool {
	return s == CheckoutScopeServerCart || s == CheckoutScopeSelected
}

type CheckoutRequest struct {
	SuccessURL string
	CancelURL  string
	// ProductIDs is only set for CheckoutScopeSelected.
	ProductIDs []int64
}

type CheckoutSession struct {
	CheckoutURL string        `json:"checkoutUrl"`
	PaymentIDs  []string      `json:"paymentIds,omitempty"`
	Scope       CheckoutScope `json:"scope"`
}
