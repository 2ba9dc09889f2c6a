package main

import (
	"log"

	appconfiguration "github.com/IBM/appconfiguration-go-client-sdk"
)

func main() {

	client, err := appconfiguration.NewClient(&appconfiguration.Options{
		Region:        "us-south",
		GUID:          "00000000-0000-0000-0000-000000000000",
		APIKey:        "apikey-placeholder",
		CollectionID:  "web-app",
		EnvironmentID: "dev",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	attributes := map[string]interface{}{
		"email": "dev@tester.com",
		"plan":  "premium",
	}

	value, err := client.EvaluateFeature("dark-mode", "user-123", attributes)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("dark-mode value: %v", value)

	enabled, _ := client.IsFeatureEnabled("dark-mode", "user-123", attributes)
	log.Printf("dark-mode enabled: %v", enabled)

	features, _ := client.GetFeatures()
	for id, feature := range features {
		log.Printf("feature %s type:%s", id, feature.GetFeatureDataType())
	}

	timeout, err := client.EvaluateProperty("request-timeout", "user-123", attributes)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("request-timeout: %v", timeout)

	if err := client.RecordMetricEvent("checkout-completed", "user-123"); err != nil {
		log.Printf("metric not recorded: %v", err)
	}
}
