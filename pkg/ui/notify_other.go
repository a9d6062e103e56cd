//go:build !linux

package ui

import "errors"

var errNotificationsUnsupported = errors.New("desktop notifications not supported on this platform")

func sendNotification(summary, body string, urgency byte) error {
	return errNotificationsUnsupported
}
