/*
Copyright © 2026 tfitzpatrick0
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tfitzpatrick0/openclaw-droplet/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createServerAddr string

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a new droplet",
	Long:  `Ask a running openclaw-droplet server to provision a new droplet. Returns immediately with the droplet id; convergence happens in the background.`,
	Run: func(cmd *cobra.Command, args []string) {
		createDroplet(createServerAddr)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVarP(&createServerAddr, "server", "s", "http://localhost:8080", "Server address")
}

func createDroplet(serverAddr string) {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	resp, err := client.Post(serverAddr+"/resources", "application/json", nil)
	if err != nil {
		logging.Logger().Fatal("Failed to reach server", zap.Error(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Logger().Fatal("Failed to read response", zap.Error(err))
	}

	if resp.StatusCode != http.StatusAccepted {
		logging.Logger().Fatal("Droplet creation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.Truncate(string(body))))
	}

	var result struct {
		ID     int    `json:"id"`
		Name   string `json:"name"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		logging.Logger().Fatal("Failed to decode response", zap.Error(err))
	}

	fmt.Printf("Droplet creation accepted. ID: %d, Name: %s, Status: %s\n", result.ID, result.Name, result.Status)
}
