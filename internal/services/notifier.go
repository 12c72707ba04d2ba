package services

import (
	"bytes"
	"context"
	"html/template"
	"log"
	"time"

	"github.com/example/charmntreats/internal/models"
)

// Mailer delivers one HTML email and reports whether any provider took it.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) bool
}

// Notifier renders and sends the storefront's transactional emails. Every
// send is best effort: a failed email never undoes the order or account
// change that triggered it.
type Notifier struct {
	mailer     Mailer
	ownerEmail string
	delay      time.Duration
	telegram   *TelegramService
	sleep      func(time.Duration)
}

// NewNotifier constructs Notifier. delay separates the customer and owner
// order emails so the provider does not throttle the second one.
func NewNotifier(mailer Mailer, ownerEmail string, delay time.Duration, telegram *TelegramService) *Notifier {
	return &Notifier{
		mailer:     mailer,
		ownerEmail: ownerEmail,
		delay:      delay,
		telegram:   telegram,
		sleep:      time.Sleep,
	}
}

// Send passes a raw message through to the mail chain.
func (n *Notifier) Send(ctx context.Context, to, subject, html string) bool {
	return n.mailer.Send(ctx, to, subject, html)
}

// SendOTP emails code for purpose to email.
func (n *Notifier) SendOTP(ctx context.Context, email, code string, purpose models.OTPPurpose) bool {
	subject := "Your Charmntreats verification code"
	heading := "Verify your email"
	intro := "Use the code below to finish creating your Charmntreats account."
	if purpose == models.OTPPurposeReset {
		subject = "Reset your Charmntreats password"
		heading = "Password reset"
		intro = "Use the code below to reset your password. If you did not ask for this, you can ignore this email."
	}

	html, err := render(otpTemplate, map[string]any{
		"Heading": heading,
		"Intro":   intro,
		"Code":    code,
		"Minutes": int(OTPTTL / time.Minute),
	})
	if err != nil {
		log.Printf("[Mail] render %s otp email: %v", purpose, err)
		return false
	}
	return n.mailer.Send(ctx, email, subject, html)
}

// OrderEmailResult reports which order confirmation emails went out.
type OrderEmailResult struct {
	Customer bool
	Owner    bool
}

// SendOrderConfirmation emails the customer, waits, then emails the store
// owner and raises the Telegram alert when one is configured.
func (n *Notifier) SendOrderConfirmation(ctx context.Context, order models.Order) OrderEmailResult {
	var result OrderEmailResult

	data := orderTemplateData(order)
	customerHTML, err := render(customerOrderTemplate, data)
	if err != nil {
		log.Printf("[Mail] render customer order email for %s: %v", order.OrderID, err)
	} else {
		result.Customer = n.mailer.Send(ctx, order.CustomerEmail, "Order Confirmed - "+order.OrderID, customerHTML)
	}

	if n.ownerEmail == "" {
		log.Printf("[Mail] store owner email not configured, skipping owner notice for %s", order.OrderID)
	} else {
		if n.delay > 0 {
			n.sleep(n.delay)
		}
		ownerHTML, err := render(ownerOrderTemplate, data)
		if err != nil {
			log.Printf("[Mail] render owner order email for %s: %v", order.OrderID, err)
		} else {
			result.Owner = n.mailer.Send(ctx, n.ownerEmail, "New Order Received - "+order.OrderID, ownerHTML)
		}
	}

	if n.telegram.Enabled() {
		if err := n.telegram.NotifyNewOrder(ctx, order); err != nil {
			log.Printf("[Telegram] order alert failed for %s: %v", order.OrderID, err)
		}
	}

	log.Printf("[Mail] order %s confirmation: customer=%t owner=%t", order.OrderID, result.Customer, result.Owner)
	return result
}

type orderLine struct {
	Name     string
	Catalog  string
	Quantity int
	Price    string
	Total    string
}

func orderTemplateData(order models.Order) map[string]any {
	lines := make([]orderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, orderLine{
			Name:     item.ProductName,
			Catalog:  item.CatalogNumber,
			Quantity: item.Quantity,
			Price:    FormatPrice(item.UnitPrice),
			Total:    FormatPrice(item.LineTotal),
		})
	}

	shipping := "FREE"
	if order.ShippingCost > 0 {
		shipping = FormatPrice(order.ShippingCost)
	}

	payment := "Cash on Delivery"
	if order.PaymentMethod == models.PaymentOnline {
		payment = "Online Payment"
	}

	return map[string]any{
		"Order":     order,
		"Lines":     lines,
		"Subtotal":  FormatPrice(order.Subtotal),
		"Shipping":  shipping,
		"Total":     FormatPrice(order.TotalAmount),
		"Payment":   payment,
		"OrderDate": order.OrderDate.Format("02 Jan 2006, 15:04"),
	}
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto;padding:24px">
  <h2 style="color:#b45309">{{.Heading}}</h2>
  <p>{{.Intro}}</p>
  <p style="font-size:32px;letter-spacing:8px;font-weight:bold;text-align:center">{{.Code}}</p>
  <p style="color:#666">The code expires in {{.Minutes}} minutes and can be tried 3 times.</p>
  <p>Charmntreats</p>
</div>`))

const orderTableTemplate = `{{define "table"}}<table style="width:100%;border-collapse:collapse">
  <tr><th align="left">Item</th><th>Qty</th><th align="right">Price</th><th align="right">Total</th></tr>
  {{range .Lines}}<tr><td>{{.Name}}{{if .Catalog}} <small>({{.Catalog}})</small>{{end}}</td><td align="center">{{.Quantity}}</td><td align="right">{{.Price}}</td><td align="right">{{.Total}}</td></tr>
  {{end}}<tr><td colspan="3" align="right">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
  <tr><td colspan="3" align="right">Shipping</td><td align="right">{{.Shipping}}</td></tr>
  <tr><td colspan="3" align="right"><b>Total</b></td><td align="right"><b>{{.Total}}</b></td></tr>
</table>{{end}}`

var customerOrderTemplate = template.Must(template.New("customer").Parse(orderTableTemplate + `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:24px">
  <h2 style="color:#b45309">Thank you for your order, {{.Order.CustomerName}}!</h2>
  <p>Your order <b>{{.Order.OrderID}}</b> placed on {{.OrderDate}} is confirmed.</p>
  {{template "table" .}}
  <p>Payment: {{.Payment}}</p>
  <p>Delivering to: {{.Order.CustomerAddress}}, {{.Order.CustomerCity}}, {{.Order.CustomerState}} {{.Order.CustomerPincode}}</p>
  <p>You can track your order with your order id and email at any time.</p>
  <p>Charmntreats</p>
</div>`))

var ownerOrderTemplate = template.Must(template.New("owner").Parse(orderTableTemplate + `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;padding:24px">
  <h2>New order {{.Order.OrderID}}</h2>
  <p>Placed {{.OrderDate}}, payment: {{.Payment}}</p>
  <h3>Customer</h3>
  <p>{{.Order.CustomerName}}<br>{{.Order.CustomerEmail}}<br>{{.Order.CustomerPhone}}</p>
  <p>{{.Order.CustomerAddress}}, {{.Order.CustomerCity}}, {{.Order.CustomerState}} {{.Order.CustomerPincode}}</p>
  {{template "table" .}}
</div>`))
