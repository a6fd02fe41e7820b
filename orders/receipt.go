package orders

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"mandi/apperr"
	"mandi/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var receiptSecret = []byte("dev-only-receipt-secret")

// SetReceiptSecret installs the HMAC key used to sign receipt QR payloads.
func SetReceiptSecret(secret string) {
	if secret != "" {
		receiptSecret = []byte(secret)
	}
}

// receiptQRPayload returns orderID|timestamp|signature so a scanned receipt
// can be verified against tampering.
func receiptQRPayload(orderID string) string {
	data := fmt.Sprintf("%s|%d", orderID, time.Now().Unix())
	h := hmac.New(sha256.New, receiptSecret)
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// DownloadReceipt handles GET /api/orders/:id/receipt and streams a PDF.
// Only parties to the order may fetch it.
func DownloadReceipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestingUserID := utils.GetUserIDFromRequest(r)
	if requestingUserID == "" {
		http.Error(w, "Invalid user", http.StatusBadRequest)
		return
	}

	order, err := LoadOrder(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithJSON(w, apperr.Status(err), utils.M{"success": false, "message": err.Error()})
		return
	}
	if order.BuyerID != requestingUserID && order.FarmerID != requestingUserID {
		utils.RespondWithJSON(w, http.StatusForbidden, utils.M{"success": false, "message": "Not a party to this order"})
		return
	}

	qrPNG, err := qrcode.Encode(receiptQRPayload(order.OrderID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Order ID: %s", order.OrderID))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Placed: %s", order.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", order.CurrentStatus))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Items")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	for _, item := range order.Items {
		pdf.Cell(0, 7, fmt.Sprintf("%s  x%d  @ %.2f  =  %.2f", item.Name, item.Quantity, item.UnitPrice, item.Total))
		pdf.Ln(7)
	}
	pdf.Ln(5)

	pdf.Cell(0, 7, fmt.Sprintf("Subtotal: %.2f", order.Subtotal))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Delivery fee: %.2f", order.DeliveryFee))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Tax: %.2f", order.Tax))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Discount: -%.2f", order.Discount))
	pdf.Ln(7)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", order.Total))
	pdf.Ln(12)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("receipt-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("receipt-qr", 150, 20, 40, 40, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to render receipt", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%s.pdf", order.OrderID))
	w.Write(buf.Bytes())
}
