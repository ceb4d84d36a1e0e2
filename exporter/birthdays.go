package exporter

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	vcf "github.com/emersion/go-vcf"
)

var birthdayLayouts = []string{"2006-01-02", "20060102"}

func parseBirthday(value string) (time.Time, bool) {
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BirthdayCalendar builds an iCalendar with one yearly recurring event
// per contact whose birthday is a full date. Contacts with free-text
// or reduced-accuracy birthdays are left out.
func BirthdayCalendar(contacts []*vcf.Contact) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//emersion//go-vcf birthdays//EN")

	for _, c := range contacts {
		t, ok := parseBirthday(c.Birthday)
		if !ok {
			continue
		}
		name := c.PrimaryIdentifier()
		if name == "" {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, uuid.New().String())
		event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now())
		event.Props.SetDateTime(ical.PropDateTimeStart, t)
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("Birthday: %v", name))
		event.Props.SetText(ical.PropRecurrenceRule, "FREQ=YEARLY")

		cal.Children = append(cal.Children, event.Component)
	}

	return cal
}
