package services

import (
	"fmt"
	"html/template"
	"io"

	"vskmarket/internal/models"
)

var paymentPage = template.Must(template.New("payment").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Merchant}} - Payment</title>
<script src="https://checkout.razorpay.com/v1/checkout.js"></script>
</head>
<body>
<script>
(function () {
  var callback = {{.CallbackURL}};
  function report(msg) {
    fetch(callback, {
      method: "POST",
      headers: {"Content-Type": "application/json"},
      body: JSON.stringify(msg)
    });
  }
  var rzp = new Razorpay({
    key: {{.KeyID}},
    amount: {{.Amount}},
    currency: {{.Currency}},
    name: {{.Merchant}},
    order_id: {{.OrderID}},
    prefill: {name: {{.Name}}, email: {{.Email}}, contact: {{.Phone}}},
    handler: function (r) {
      report({outcome: "success", payment_id: r.razorpay_payment_id, order_id: r.razorpay_order_id, signature: r.razorpay_signature});
    },
    modal: {
      ondismiss: function () { report({outcome: "cancelled"}); }
    }
  });
  rzp.on("payment.failed", function (r) {
    report({outcome: "failed", error: r.error && r.error.description});
  });
  rzp.open();
})();
</script>
</body>
</html>
`))

type paymentPageData struct {
	CallbackURL string
	KeyID       string
	Amount      int64
	Currency    string
	Merchant    string
	OrderID     string
	Name        string
	Email       string
	Phone       string
}

// RenderPaymentPage writes the gateway checkout page for the pending
// payment. The page reports its outcome as a GatewayMessage to callbackURL.
func (s *CheckoutService) RenderPaymentPage(w io.Writer, callbackURL string) error {
	rec, err := s.store.Checkout()
	if err != nil {
		return err
	}
	if rec.State != models.CheckoutPaymentPending || rec.Payment == nil {
		return fmt.Errorf("%w: no payment pending (state %q)", ErrInvalidTransition, rec.State)
	}

	data := paymentPageData{
		CallbackURL: callbackURL,
		KeyID:       rec.Payment.KeyID,
		Amount:      rec.Payment.Amount,
		Currency:    rec.Payment.Currency,
		Merchant:    s.cfg.MerchantName,
		OrderID:     rec.Payment.GatewayOrderID,
	}
	if rec.Address != nil {
		addr := rec.Address.ShippingAddress()
		data.Name, data.Email, data.Phone = addr.Name, addr.Email, addr.Phone
	}
	return paymentPage.Execute(w, data)
}
