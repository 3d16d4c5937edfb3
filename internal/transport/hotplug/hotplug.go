// Package hotplug watches udev for a DALI USB dongle's tty device node
// appearing and disappearing, so cmd/dali-monitor can reopen its driver
// across an unplug/replug instead of dying on the first read error. The
// teacher enumerates udev devices by USB vendor/product id via cgo
// libudev in cm108.go; this does the equivalent lookup and adds the
// monitor-socket watch libudev also exposes, through the pure-Go binding.
package hotplug

import (
	"context"
	"fmt"

	"github.com/jochenvg/go-udev"
)

// EventType discriminates a hot-plug observation.
type EventType int

const (
	// EventAdd means DevNode has just appeared.
	EventAdd EventType = iota
	// EventRemove means DevNode has just disappeared.
	EventRemove
)

// Event is one device arrival or departure.
type Event struct {
	Type    EventType
	DevNode string
}

// Find returns the device node of the first currently-attached tty device
// whose USB vendor/product id match vendorID/productID (e.g. a CP2102 or
// CH340 dongle), or "" if none is attached.
func Find(vendorID, productID string) (string, error) {
	u := udev.Udev{}
	enum := u.NewEnumerate()
	if err := enum.AddMatchSubsystem("tty"); err != nil {
		return "", fmt.Errorf("hotplug: match subsystem: %w", err)
	}
	devices, err := enum.Devices()
	if err != nil {
		return "", fmt.Errorf("hotplug: enumerate: %w", err)
	}
	for _, d := range devices {
		parent := d.ParentWithSubsystemDevtype("usb", "usb_device")
		if parent == nil {
			continue
		}
		if parent.PropertyValue("ID_VENDOR_ID") == vendorID && parent.PropertyValue("ID_MODEL_ID") == productID {
			return d.Devnode(), nil
		}
	}
	return "", nil
}

// Watch streams add/remove events for tty devices until ctx is cancelled.
// cmd/dali-monitor filters these by vendor/product id itself since the
// udev monitor API matches by subsystem, not by arbitrary property.
func Watch(ctx context.Context) (<-chan Event, error) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("hotplug: filter subsystem: %w", err)
	}

	deviceCh, errCh, err := mon.DeviceChan(ctx)
	if err != nil {
		return nil, fmt.Errorf("hotplug: start monitor: %w", err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errCh:
				if !ok {
					return
				}
				_ = err // surfaced to the caller only as the channel closing
			case d, ok := <-deviceCh:
				if !ok {
					return
				}
				ev, recognised := toEvent(d)
				if recognised {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func toEvent(d *udev.Device) (Event, bool) {
	switch d.Action() {
	case "add":
		return Event{Type: EventAdd, DevNode: d.Devnode()}, true
	case "remove":
		return Event{Type: EventRemove, DevNode: d.Devnode()}, true
	default:
		return Event{}, false
	}
}
