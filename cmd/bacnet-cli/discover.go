// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var discoverWindow time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Broadcast Who-Is and list every I-Am reply",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), discoverWindow+timeout)
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		defer client.Close()

		devices, err := client.Discover(ctx, discoverWindow)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("no devices responded")
			return nil
		}
		for _, d := range devices {
			fmt.Printf("device %-8d %-21s max-apdu=%-5d vendor=%d\n", d.Instance, d.Addr, d.MaxAPDU, d.VendorID)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVarP(&discoverWindow, "window", "w", 3*time.Second, "how long to wait for I-Am replies")
}
