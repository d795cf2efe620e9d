package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"eventservices/internal/webhook"
)

func main() {
	var (
		url       = flag.String("url", "", "webhook endpoint url (defaults to http://localhost<HTTP_ADDR>/v1/webhooks/payments/<topic>)")
		topic     = flag.String("topic", "payment/approved", "payment/approved or payment/rejected")
		secret    = flag.String("secret", os.Getenv("PAYMENT_WEBHOOK_SECRET"), "PAYMENT_WEBHOOK_SECRET")
		paymentID = flag.String("payment", "", "payment id")
		category  = flag.String("category", "", "issue category for rejections")
		reason    = flag.String("reason", "", "rejection reason")
		payload   = flag.String("payload", "", "path to a json payload file (overrides -payment)")
		webhookID = flag.String("id", "", "optional webhook id header value")
	)
	flag.Parse()

	if *url == "" {
		httpAddr := os.Getenv("HTTP_ADDR")
		if httpAddr == "" || httpAddr[0] != ':' {
			httpAddr = ":8081"
		}
		*url = "http://localhost" + httpAddr + "/v1/webhooks/payments/" + webhook.NormalizeTopic(*topic)
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing -secret")
		os.Exit(2)
	}

	var b []byte
	var err error
	switch {
	case *payload != "":
		b, err = os.ReadFile(*payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
			os.Exit(2)
		}
	case *paymentID != "":
		b, _ = json.Marshal(map[string]string{
			"paymentId":     *paymentID,
			"issueCategory": *category,
			"reason":        *reason,
		})
	default:
		fmt.Fprintln(os.Stderr, "missing -payment or -payload")
		os.Exit(2)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(b))
	if err != nil {
		fmt.Fprintf(os.Stderr, "new request: %v\n", err)
		os.Exit(2)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.TopicHeader, *topic)
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(b, *secret))
	if *webhookID != "" {
		req.Header.Set(webhook.IDHeader, *webhookID)
	}

	c := &http.Client{Timeout: 10 * time.Second}
	resp, err := c.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d\n%s\n", resp.StatusCode, string(body))
}
