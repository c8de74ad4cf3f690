package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/sweeney/wifi-outlet/internal/status"
)

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo reads pi-helper's env file. pi-helper rewrites the file as
// the network changes, so it is re-read on every heartbeat. Variables missing
// from the file fall back to the process environment.
func readNetworkInfo(envFile string) *status.NetworkInfo {
	vars := map[string]string{}
	if envFile != "" {
		if m, err := godotenv.Read(envFile); err == nil {
			vars = m
		}
	}
	get := func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
