package dom

import (
	"golang.org/x/net/html"
)

const EventMouseOver = "mouseover"

type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
}

type Listener func(Event)

func (d *Document) AddEventListener(n *html.Node, eventType string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	byType, ok := d.listeners[n]
	if !ok {
		byType = make(map[string][]Listener)
		d.listeners[n] = byType
	}
	byType[eventType] = append(byType[eventType], fn)
}

// DispatchEvent delivers a bubbling event to target and then to each of its
// ancestors. It returns the number of listeners invoked.
func (d *Document) DispatchEvent(target *html.Node, eventType string) int {
	invoked := 0
	for current := target; current != nil; current = current.Parent {
		d.mu.Lock()
		listeners := append([]Listener(nil), d.listeners[current][eventType]...)
		d.mu.Unlock()

		for _, fn := range listeners {
			fn(Event{Type: eventType, Target: target, CurrentTarget: current})
			invoked++
		}
	}

	return invoked
}
