package application

import (
	"fmt"
	"strings"

	"github.com/helsingbuss/service-booking/internal/domain/booking"
	"github.com/helsingbuss/service-booking/internal/domain/offer"
	"github.com/helsingbuss/service-booking/internal/domain/trip"
	"github.com/helsingbuss/service-booking/internal/notify"
)

func describeLeg(l trip.Leg) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s", l.Origin, l.Destination)
	if l.Date != "" {
		fmt.Fprintf(&b, ", %s", l.Date)
	}
	if l.Time != "" {
		fmt.Fprintf(&b, " kl. %s", l.Time)
	}
	if len(l.Stops) > 0 {
		fmt.Fprintf(&b, " (via %s)", strings.Join(l.Stops, ", "))
	}
	return b.String()
}

func describeTrip(outbound trip.Leg, ret *trip.Leg, passengers int) string {
	lines := []string{"Utresa: " + describeLeg(outbound)}
	if ret != nil {
		lines = append(lines, "Retur: "+describeLeg(*ret))
	}
	lines = append(lines, fmt.Sprintf("Antal resenärer: %d", passengers))
	return strings.Join(lines, "\n")
}

func formatPrice(p *trip.PriceBreakdown) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("Pris: %d,%02d %s inkl. moms (moms %d,%02d %s)",
		p.TotalCents/100, p.TotalCents%100, p.Currency,
		p.VATCents/100, p.VATCents%100, p.Currency)
}

func greeting(c trip.Customer) string {
	if c.Name == "" {
		return "Hej!"
	}
	return "Hej " + c.Name + "!"
}

func offerReceivedTask(o *offer.Offer) notify.Task {
	body := strings.Join([]string{
		greeting(o.Customer()),
		"",
		fmt.Sprintf("Tack för din förfrågan. Vi har tagit emot den som %s och återkommer med en offert.", o.OfferNumber()),
		"",
		describeTrip(o.Outbound(), o.Return(), o.Passengers()),
	}, "\n")
	return notify.NewTask(notify.KindOfferReceived, o.Customer().Email,
		"Vi har tagit emot din förfrågan "+o.OfferNumber(), body, o.OfferNumber())
}

func offerStaffNoticeTask(o *offer.Offer, inbox string) notify.Task {
	c := o.Customer()
	body := strings.Join([]string{
		fmt.Sprintf("Ny offertförfrågan %s", o.OfferNumber()),
		"",
		describeTrip(o.Outbound(), o.Return(), o.Passengers()),
		"",
		fmt.Sprintf("Kontakt: %s, %s, %s", c.Name, c.Email, c.Phone),
		"Meddelande: " + o.Notes(),
	}, "\n")
	return notify.NewTask(notify.KindOfferStaffNotice, inbox,
		"Ny förfrågan "+o.OfferNumber(), body, o.OfferNumber())
}

func offerSentTask(o *offer.Offer) notify.Task {
	body := strings.Join([]string{
		greeting(o.Customer()),
		"",
		fmt.Sprintf("Här är vår offert %s.", o.OfferNumber()),
		"",
		describeTrip(o.Outbound(), o.Return(), o.Passengers()),
		formatPrice(o.Price()),
	}, "\n")
	return notify.NewTask(notify.KindOfferSent, o.Customer().Email,
		"Offert "+o.OfferNumber()+" från Helsingbuss", body, o.OfferNumber())
}

func offerAcceptedTask(o *offer.Offer) notify.Task {
	body := strings.Join([]string{
		greeting(o.Customer()),
		"",
		fmt.Sprintf("Tack! Offert %s är godkänd. Du får en bokningsbekräftelse när resan är inbokad.", o.OfferNumber()),
	}, "\n")
	return notify.NewTask(notify.KindOfferAccepted, o.Customer().Email,
		"Offert "+o.OfferNumber()+" godkänd", body, o.OfferNumber())
}

func offerStaffAcceptedTask(o *offer.Offer, inbox string) notify.Task {
	body := strings.Join([]string{
		fmt.Sprintf("Offert %s har godkänts av kunden och kan bokas.", o.OfferNumber()),
		"",
		describeTrip(o.Outbound(), o.Return(), o.Passengers()),
		formatPrice(o.Price()),
	}, "\n")
	return notify.NewTask(notify.KindOfferStaffAccept, inbox,
		"Godkänd offert "+o.OfferNumber(), body, o.OfferNumber())
}

func offerDeclinedTask(o *offer.Offer) notify.Task {
	body := strings.Join([]string{
		greeting(o.Customer()),
		"",
		fmt.Sprintf("Offert %s är nu stängd. Hör gärna av dig om du vill planera en ny resa.", o.OfferNumber()),
	}, "\n")
	return notify.NewTask(notify.KindOfferDeclined, o.Customer().Email,
		"Offert "+o.OfferNumber()+" avslutad", body, o.OfferNumber())
}

func bookingConfirmedTask(bk *booking.Booking) notify.Task {
	body := strings.Join([]string{
		greeting(bk.Customer()),
		"",
		fmt.Sprintf("Din resa är bokad med bokningsnummer %s.", bk.BookingNumber()),
		"",
		describeTrip(bk.Outbound(), bk.Return(), bk.Passengers()),
	}, "\n")
	return notify.NewTask(notify.KindBookingConfirmed, bk.Customer().Email,
		"Bokningsbekräftelse "+bk.BookingNumber(), body, bk.BookingNumber())
}
