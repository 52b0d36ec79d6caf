package payments

import "html/template"

type iyzicoForm struct {
	Action         string
	ConversationID string
	Price          string
	Currency       string
	CallbackURL    string
}

type paytrForm struct {
	Action        string
	MerchantID    string
	MerchantOID   string
	UserIP        string
	PaymentAmount int64
	Currency      string
	OkURL         string
	FailURL       string
	CallbackURL   string
}

var iyzicoFormTemplate = template.Must(template.New("iyzico").Parse(`<!DOCTYPE html>
<html>
<head><title>İyzico'ya Yönlendiriliyor...</title></head>
<body>
  <div style="text-align:center;padding:50px;">
    <h3>İyzico ödeme sayfasına yönlendiriliyorsunuz...</h3>
    <p>Lütfen bekleyiniz...</p>
  </div>
  <form id="iyzicoForm" method="POST" action="{{.Action}}">
    <input type="hidden" name="locale" value="tr" />
    <input type="hidden" name="conversationId" value="{{.ConversationID}}" />
    <input type="hidden" name="price" value="{{.Price}}" />
    <input type="hidden" name="paidPrice" value="{{.Price}}" />
    <input type="hidden" name="currency" value="{{.Currency}}" />
    <input type="hidden" name="basketId" value="{{.ConversationID}}" />
    <input type="hidden" name="paymentGroup" value="PRODUCT" />
    <input type="hidden" name="callbackUrl" value="{{.CallbackURL}}" />
  </form>
  <script>document.getElementById('iyzicoForm').submit();</script>
</body>
</html>
`))

var paytrFormTemplate = template.Must(template.New("paytr").Parse(`<!DOCTYPE html>
<html>
<head><title>PayTR'ye Yönlendiriliyor...</title></head>
<body>
  <div style="text-align:center;padding:50px;">
    <h3>PayTR ödeme sayfasına yönlendiriliyorsunuz...</h3>
    <p>Lütfen bekleyiniz...</p>
  </div>
  <form id="paytrForm" method="POST" action="{{.Action}}">
    <input type="hidden" name="merchant_id" value="{{.MerchantID}}" />
    <input type="hidden" name="merchant_oid" value="{{.MerchantOID}}" />
    <input type="hidden" name="user_ip" value="{{.UserIP}}" />
    <input type="hidden" name="payment_amount" value="{{.PaymentAmount}}" />
    <input type="hidden" name="currency" value="{{.Currency}}" />
    <input type="hidden" name="merchant_ok_url" value="{{.OkURL}}" />
    <input type="hidden" name="merchant_fail_url" value="{{.FailURL}}" />
    <input type="hidden" name="callback_url" value="{{.CallbackURL}}" />
  </form>
  <script>document.getElementById('paytrForm').submit();</script>
</body>
</html>
`))
