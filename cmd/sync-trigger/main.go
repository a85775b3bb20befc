package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Development tool: publishes a sync or push request to the adapter and
// waits for the response.

type RequestMessage struct {
	RequestID string                 `json:"request_id"`
	APIKey    string                 `json:"api_key"`
	CompanyID string                 `json:"company_id"`
	Action    string                 `json:"action"`
	Params    map[string]interface{} `json:"params"`
}

func main() {
	godotenv.Load()

	// Flags
	action := flag.String("action", "sync_vendors", "Action to perform (sync_vendors, sync_projects, push_compliance)")
	companyID := flag.String("company", "company_001", "RiskSure company ID")
	vendorIDs := flag.String("vendors", "", "Comma-separated external vendor IDs")
	projectIDs := flag.String("projects", "", "Comma-separated external project IDs")
	subcontractorID := flag.String("sub", "", "Subcontractor ID (for push_compliance)")
	updateExisting := flag.Bool("update", false, "Update already-synced entities")
	mergeExisting := flag.Bool("merge", false, "Merge ABN conflicts into existing subcontractors")
	apiKey := flag.String("key", "risksure-key-123", "API key")
	flag.Parse()

	// Connect to broker
	brokerURL := os.Getenv("BROKER_URL")
	if brokerURL == "" {
		brokerURL = "tcp://localhost:1883"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("sync-trigger-" + fmt.Sprintf("%d", time.Now().Unix()))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("Failed to connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.Printf("Connected to broker: %s", brokerURL)

	// Build request
	requestID := "req_" + uuid.NewString()
	req := RequestMessage{
		RequestID: requestID,
		APIKey:    *apiKey,
		CompanyID: *companyID,
		Action:    *action,
		Params:    make(map[string]interface{}),
	}

	if ids := parseIDs(*vendorIDs); len(ids) > 0 {
		req.Params["vendor_ids"] = ids
	}
	if ids := parseIDs(*projectIDs); len(ids) > 0 {
		req.Params["project_ids"] = ids
	}
	if *subcontractorID != "" {
		req.Params["subcontractor_id"] = *subcontractorID
	}
	if *updateExisting {
		req.Params["update_existing"] = true
	}
	if *mergeExisting {
		req.Params["merge_existing"] = true
	}

	payload, _ := json.MarshalIndent(req, "", "  ")
	topic := "requests/" + *action

	log.Printf("Publishing to: %s", topic)
	log.Printf("Payload:\n%s", string(payload))

	// Publish request
	token := client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Fatalf("Failed to publish: %v", token.Error())
	}

	log.Println("Request published!")

	// Subscribe to response
	responseTopic := "responses/" + requestID
	log.Printf("Waiting for response on: %s", responseTopic)

	received := make(chan []byte, 1)
	client.Subscribe(responseTopic, 1, func(c mqtt.Client, m mqtt.Message) {
		received <- m.Payload()
	})

	// Wait for response with timeout
	select {
	case resp := <-received:
		var prettyResp map[string]interface{}
		json.Unmarshal(resp, &prettyResp)
		pretty, _ := json.MarshalIndent(prettyResp, "", "  ")
		log.Printf("Response received:\n%s", string(pretty))
	case <-time.After(5 * time.Minute):
		log.Println("Timeout waiting for response")
	}
}

func parseIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			log.Fatalf("Invalid ID %q: %v", part, err)
		}
		ids = append(ids, id)
	}
	return ids
}
