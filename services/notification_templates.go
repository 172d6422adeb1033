package services

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"local-services-server/models"
)

type notificationContent struct {
	Title, TitleHi     string
	Message, MessageHi string
}

var serviceTypeHi = map[string]string{
	"electrical": "बिजली",
	"plumbing":   "प्लंबिंग",
}

var statusLabels = map[string][2]string{
	string(models.BookingStatusPending):    {"pending", "लंबित"},
	string(models.BookingStatusConfirmed):  {"confirmed", "पुष्टि हुई"},
	string(models.BookingStatusInProgress): {"in progress", "प्रगति में"},
	string(models.BookingStatusCompleted):  {"completed", "पूर्ण"},
	string(models.BookingStatusCancelled):  {"cancelled", "रद्द"},
}

func statusLabel(status string, hindi bool) string {
	l, ok := statusLabels[status]
	if !ok {
		return status
	}
	if hindi {
		return l[1]
	}
	return l[0]
}

func priorityPrefix(priority string) (string, string) {
	switch priority {
	case string(models.PriorityEmergency):
		return "🚨 EMERGENCY: ", "🚨 आपातकाल: "
	case string(models.PriorityUrgent):
		return "⚡ Urgent: ", "⚡ अत्यावश्यक: "
	default:
		return "", ""
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// composeNotification renders the English and Hindi text for an event.
func composeNotification(ev BookingEvent) notificationContent {
	svcHi := serviceTypeHi[ev.ServiceType]
	if svcHi == "" {
		svcHi = ev.ServiceType
	}
	svcEn := capitalize(ev.ServiceType)
	prefixEn, prefixHi := priorityPrefix(ev.Priority)
	when := ev.ScheduledTime.Format("02 Jan 2006 15:04")

	switch ev.Kind {
	case models.NotificationBookingCreated:
		return notificationContent{
			Title:     prefixEn + "New booking " + ev.BookingNumber,
			TitleHi:   prefixHi + "नई बुकिंग " + ev.BookingNumber,
			Message:   fmt.Sprintf("%s service requested by %s for %s. Estimate ₹%.0f.", svcEn, ev.CustomerName, when, ev.TotalCost),
			MessageHi: fmt.Sprintf("%s द्वारा %s के लिए %s सेवा का अनुरोध। अनुमानित ₹%.0f।", ev.CustomerName, when, svcHi, ev.TotalCost),
		}
	case models.NotificationBookingCancelled:
		msgEn := fmt.Sprintf("Booking %s was cancelled.", ev.BookingNumber)
		msgHi := fmt.Sprintf("बुकिंग %s रद्द कर दी गई।", ev.BookingNumber)
		if ev.Reason != "" {
			msgEn += " Reason: " + ev.Reason
			msgHi += " कारण: " + ev.Reason
		}
		return notificationContent{
			Title:     "Booking cancelled " + ev.BookingNumber,
			TitleHi:   "बुकिंग रद्द " + ev.BookingNumber,
			Message:   msgEn,
			MessageHi: msgHi,
		}
	case models.NotificationBookingFeedback:
		rating := 0
		if ev.Rating != nil {
			rating = *ev.Rating
		}
		return notificationContent{
			Title:     fmt.Sprintf("New %d★ feedback for %s", rating, ev.BookingNumber),
			TitleHi:   fmt.Sprintf("%s के लिए नई %d★ प्रतिक्रिया", ev.BookingNumber, rating),
			Message:   fmt.Sprintf("%s rated the %s service %d out of 5.", ev.CustomerName, ev.ServiceType, rating),
			MessageHi: fmt.Sprintf("%s ने %s सेवा को 5 में से %d रेटिंग दी।", ev.CustomerName, svcHi, rating),
		}
	default:
		return notificationContent{
			Title:     fmt.Sprintf("Booking %s is %s", ev.BookingNumber, statusLabel(ev.Status, false)),
			TitleHi:   fmt.Sprintf("बुकिंग %s %s", ev.BookingNumber, statusLabel(ev.Status, true)),
			Message:   fmt.Sprintf("Status changed from %s to %s.", statusLabel(ev.PrevStatus, false), statusLabel(ev.Status, false)),
			MessageHi: fmt.Sprintf("स्थिति %s से %s में बदली।", statusLabel(ev.PrevStatus, true), statusLabel(ev.Status, true)),
		}
	}
}
