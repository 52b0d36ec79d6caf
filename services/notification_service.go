package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/satis-shop/satis-api/models"
)

const siteName = "Satış Sitesi"

var statusMessages = map[string]string{
	models.StatusReceived:  "Siparişiniz alındı",
	models.StatusPaid:      "Ödemeniz onaylandı",
	models.StatusShipped:   "Siparişiniz kargoya verildi",
	models.StatusCancelled: "Siparişiniz iptal edildi",
}

// StatusMessage returns the customer-facing Turkish text for an order status
func StatusMessage(status string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Sipariş durumu güncellendi"
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<h2>{{.Site}}</h2>
<p>Merhaba {{.Order.FullName}},</p>
<p>Siparişiniz başarıyla alınmıştır.</p>
<p><strong>Sipariş No:</strong> {{.Number}}</p>
<table>
{{range .Order.Items}}<tr><td>{{.Product.Name}}</td><td>{{.Quantity}} adet</td><td>{{.LineTotal.StringFixed 2}} TL</td></tr>
{{end}}</table>
<p><strong>Kargo:</strong> {{.Order.ShippingFee.StringFixed 2}} TL</p>
<p><strong>Toplam:</strong> {{.Order.Total.StringFixed 2}} TL</p>
<p>Teşekkürler!</p>
`))

var statusTemplate = template.Must(template.New("status").Parse(`<h2>{{.Site}}</h2>
<p>Merhaba {{.Order.FullName}},</p>
<p>{{.Message}}.</p>
<p><strong>Sipariş No:</strong> {{.Number}}</p>
`))

var stockAlertTemplate = template.Must(template.New("stock_alert").Parse(`<h2>{{.Site}}</h2>
<p>{{.Product.Name}} tekrar stokta!</p>
<p>Şu an {{.Product.Stock}} adet mevcut. Tükenmeden siparişinizi verebilirsiniz.</p>
`))

// NotificationService composes customer emails and hands them to a Mailer
type NotificationService struct {
	mailer Mailer
}

// NewNotificationService creates a notification service
func NewNotificationService(mailer Mailer) *NotificationService {
	return &NotificationService{mailer: mailer}
}

// SendOrderConfirmation emails the order summary; order.Items must be loaded with their products
func (n *NotificationService) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	html, err := render(confirmationTemplate, map[string]interface{}{
		"Site":   siteName,
		"Order":  order,
		"Number": order.Number(),
	})
	if err != nil {
		return err
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Merhaba %s,\n\nSiparişiniz başarıyla alınmıştır.\n\nSipariş No: %s\n", order.FullName, order.Number())
	for _, item := range order.Items {
		fmt.Fprintf(&text, "- %s x%d: %s TL\n", item.Product.Name, item.Quantity, item.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(&text, "Toplam: %s TL\n\nTeşekkürler!\n", order.Total.StringFixed(2))

	return n.mailer.Send(ctx, Email{
		To:      []string{order.Email},
		Subject: "Sipariş Onayı - #" + order.Number(),
		Text:    text.String(),
		HTML:    html,
	})
}

// SendOrderStatus emails the order's current status
func (n *NotificationService) SendOrderStatus(ctx context.Context, order *models.Order) error {
	message := StatusMessage(order.Status)
	html, err := render(statusTemplate, map[string]interface{}{
		"Site":    siteName,
		"Order":   order,
		"Message": message,
		"Number":  order.Number(),
	})
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, Email{
		To:      []string{order.Email},
		Subject: message + " - #" + order.Number(),
		Text:    fmt.Sprintf("Merhaba %s,\n\n%s.\n\nSipariş No: %s\n", order.FullName, message, order.Number()),
		HTML:    html,
	})
}

// SendStockAlert tells the subscriber that alert.Product is back in stock
func (n *NotificationService) SendStockAlert(ctx context.Context, alert *models.StockAlert) error {
	html, err := render(stockAlertTemplate, map[string]interface{}{
		"Site":    siteName,
		"Product": alert.Product,
	})
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, Email{
		To:      []string{alert.Email},
		Subject: "Stok Uyarısı - " + alert.Product.Name,
		Text:    fmt.Sprintf("%s tekrar stokta! Şu an %d adet mevcut.\n", alert.Product.Name, alert.Product.Stock),
		HTML:    html,
	})
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
