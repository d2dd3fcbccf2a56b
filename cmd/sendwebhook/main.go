// sendwebhook simulates a Razorpay webhook delivery against a running
// PayFox instance: it builds a payment or refund event payload, signs it
// with the configured secret and POSTs it to the webhook endpoint.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"
	"github.com/google/uuid"
)

func main() {
	var (
		target    = flag.String("url", "http://localhost:4000/webhooks/razorpay", "webhook endpoint URL")
		event     = flag.String("event", "payment.captured", "event type (e.g. payment.captured, payment.failed, refund.processed, order.paid)")
		orderID   = flag.String("order-id", "", "Razorpay order id (e.g. order_123), required")
		paymentID = flag.String("payment-id", "", "Razorpay payment id (random when empty)")
		amount    = flag.Int64("amount", 1000, "amount in minor units")
		secret    = flag.String("secret", "", "webhook secret used to sign the payload, required")
	)
	flag.Parse()

	if *orderID == "" || *secret == "" {
		flag.Usage()
		log.Fatal("both -order-id and -secret are required")
	}

	payID := *paymentID
	if payID == "" {
		payID = "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	}

	body, err := json.Marshal(buildPayload(*event, *orderID, payID, *amount))
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *target, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, webhook.SignPayload(body, *secret))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("send webhook: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	fmt.Printf("%s %s\n%s\n", *event, resp.Status, string(respBody))
}

func buildPayload(event, orderID, paymentID string, amount int64) map[string]interface{} {
	payload := map[string]interface{}{
		"entity":     "event",
		"account_id": "acc_test",
		"event":      event,
		"contains":   []string{"payment"},
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"entity":   "payment",
					"amount":   amount,
					"currency": "INR",
					"status":   event[strings.LastIndex(event, ".")+1:],
					"order_id": orderID,
					"method":   "card",
					"email":    "test@example.com",
				},
			},
		},
		"created_at": time.Now().Unix(),
	}

	if strings.HasPrefix(event, "refund.") {
		payload["contains"] = []string{"refund"}
		payload["payload"].(map[string]interface{})["refund"] = map[string]interface{}{
			"entity": map[string]interface{}{
				"id":         "rfnd_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:10],
				"entity":     "refund",
				"amount":     amount,
				"currency":   "INR",
				"payment_id": paymentID,
				"status":     "processed",
			},
		}
	}

	if event == "order.paid" {
		payload["contains"] = []string{"order"}
		payload["payload"].(map[string]interface{})["order"] = map[string]interface{}{
			"entity": map[string]interface{}{
				"id":     orderID,
				"entity": "order",
				"amount": amount,
				"status": "paid",
			},
		}
	}

	return payload
}
