package core

import (
	"fmt"
	"strings"
	"time"

	"chatcart/internal/storage"
)

// Greeting derives the opening message from the user's memory record. now is
// interpreted in its own location for the time-of-day salutation.
func Greeting(rec *storage.Record, userName string, now time.Time) string {
	name := userName
	if name == "" && rec != nil {
		name = rec.UserName
	}
	if name == "" {
		name = "there"
	}
	salutation := salutationFor(now)

	if rec == nil || rec.IsNewUser || rec.TotalOrders == 0 {
		return fmt.Sprintf("%s, %s! 👋 I'm ChatFit, your personal shopping assistant. Let's find the perfect product for you today!", salutation, name)
	}

	welcome := fmt.Sprintf("Welcome back, %s! ", name)
	if daysSince(rec.LastSeenAt, now) > 7 {
		welcome = fmt.Sprintf("Welcome back, %s! It's been a while. ", name)
	}

	var personal []string
	if rec.TotalCartAdds > 0 {
		personal = append(personal, fmt.Sprintf("you previously added %d items to cart", rec.TotalCartAdds))
	}
	if top, ok := rec.TopCategory(); ok {
		personal = append(personal, "you seem to like "+top)
	}
	if len(rec.RecentProducts) > 0 {
		personal = append(personal, fmt.Sprintf("you checked out %s last time", rec.RecentProducts[0].Title))
	}
	note := ""
	if len(personal) > 0 {
		note = " I remember " + strings.Join(personal, " and ") + "."
	}

	return fmt.Sprintf("%s, %s! 👋 %sI'm here to help you continue exploring great products.%s", salutation, name, welcome, note)
}

func salutationFor(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	}
	return "Good evening"
}

func daysSince(then, now time.Time) int {
	if then.IsZero() || now.Before(then) {
		return 0
	}
	return int(now.Sub(then).Hours() / 24)
}
