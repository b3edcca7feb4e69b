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
	"github.com/tfitzpatrick0/openclaw-droplet/internal/registry"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	statusDropletID  int
	statusServerAddr string
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check droplet status",
	Long:  `Retrieve the last-known state of a droplet from a running openclaw-droplet server.`,
	Run: func(cmd *cobra.Command, args []string) {
		if statusDropletID == 0 {
			logging.Logger().Fatal("Droplet ID is required")
		}

		showStatus(statusServerAddr, statusDropletID)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVarP(&statusDropletID, "id", "i", 0, "Droplet ID")
	statusCmd.Flags().StringVarP(&statusServerAddr, "server", "s", "http://localhost:8080", "Server address")
}

func showStatus(serverAddr string, id int) {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	resp, err := client.Get(fmt.Sprintf("%s/resources/%d", serverAddr, id))
	if err != nil {
		logging.Logger().Fatal("Failed to reach server", zap.Error(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Logger().Fatal("Failed to read response", zap.Error(err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		fmt.Printf("Droplet %d not found\n", id)
		return
	default:
		logging.Logger().Fatal("Status query failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.Truncate(string(body))))
	}

	var resource registry.Resource
	if err := json.Unmarshal(body, &resource); err != nil {
		logging.Logger().Fatal("Failed to decode response", zap.Error(err))
	}

	fmt.Printf("Droplet %d (%s)\n", resource.ID, resource.Name)
	fmt.Printf("  Status: %s\n", resource.Status)
	if resource.IP != "" {
		fmt.Printf("  IP:     %s\n", resource.IP)
	}
	if resource.Region != "" {
		fmt.Printf("  Region: %s\n", resource.Region)
	}
	if resource.Memory > 0 {
		fmt.Printf("  Size:   %d MB RAM, %d vCPUs, %d GB disk\n", resource.Memory, resource.Vcpus, resource.Disk)
	}
}
