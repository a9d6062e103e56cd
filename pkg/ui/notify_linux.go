//go:build linux

package ui

import (
	"github.com/godbus/dbus/v5"
)

// notificationTimeoutMs is how long a desktop notification stays visible.
const notificationTimeoutMs = 4000

// sendNotification posts a desktop notification over the session bus.
func sendNotification(summary, body string, urgency byte) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return err
	}
	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		"Hushkey", // app name
		uint32(0), // no notification to replace
		"",        // icon resolved from desktop entry
		summary,
		body,
		[]string{}, // no actions
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)},
		int32(notificationTimeoutMs),
	)
	return call.Err
}
