package notify

import (
	"fmt"
	"strings"

	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"

	"github.com/ecavallo/binari/internal/trains"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

type Notifier struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *logrus.Logger
}

func NewNotifier(token, userKey string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := n.app.SendMessage(msg, n.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"title":      title,
		"status":     resp.Status,
		"request_id": resp.ID,
	}).Debug("notification sent")

	return nil
}

// SendSolutionsFound reports newly found journeys for a watched route.
func (n *Notifier) SendSolutionsFound(from, to string, solutions []trains.OneWaySolution) error {
	title := "Trains Found"

	var body strings.Builder
	fmt.Fprintf(&body, "%d journeys from %s to %s:\n", len(solutions), from, to)
	for _, solution := range solutions {
		fmt.Fprintf(&body, "%s", solution.DepartureTime().Format("15:04"))
		if solution.HasKnownPrice() {
			fmt.Fprintf(&body, " (%.2f EUR)", solution.PriceEuro)
		}
		names := make([]string, len(solution.Trains))
		for i, leg := range solution.Trains {
			names[i] = leg.Name
		}
		fmt.Fprintf(&body, " - %s, %dm\n", strings.Join(names, " + "), solution.DurationMinutes)
	}

	return n.SendWithPriority(title, body.String(), PriorityHigh)
}

// SendWatchError reports that the watched route could not be checked
// even after retries.
func (n *Notifier) SendWatchError(from, to string, err error) error {
	title := "Train Watch Error"
	body := fmt.Sprintf("Could not check journeys from %s to %s: %v", from, to, err)
	return n.Send(title, body)
}
