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

var (
	readObject   string
	readProperty string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a property from a BACnet object",
	Long: `read discovers the target device by Who-Is, then reads one
property from one of its objects.

Examples:
  bacnet-cli read -d 1234 -o analog-input:1 -p present-value
  bacnet-cli read -d 1234 -o device:1234 -p object-name`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readObject, "object", "o", "", "object type:instance (e.g. analog-input:1)")
	readCmd.Flags().StringVarP(&readProperty, "property", "p", "present-value", "property, by name or number")
	readCmd.MarkFlagRequired("object")
}

func runRead(cmd *cobra.Command, args []string) error {
	if deviceID == 0 {
		return fmt.Errorf("device instance is required (-d/--device)")
	}
	objType, instance, err := parseObject(readObject)
	if err != nil {
		return err
	}
	prop, err := parseProperty(readProperty)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(retries+2))
	defer cancel()

	client, err := newClient(ctx)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	devices, err := client.Discover(ctx, timeout)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	dev, ok := findDevice(devices, deviceID)
	if !ok {
		return fmt.Errorf("device %d did not respond to Who-Is", deviceID)
	}

	val, err := client.ReadProperty(ctx, dev, objType, instance, prop)
	if err != nil {
		return fmt.Errorf("read property: %w", err)
	}
	fmt.Println(formatValue(val))
	return nil
}
