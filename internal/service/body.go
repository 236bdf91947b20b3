package service

import (
	"bytes"
	"fmt"
	"html/template"
	"unicode"
	"unicode/utf8"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
)

// bodyTemplate renders a post body. html/template escapes every value for
// the context it lands in, so addresses, names and the map URL taken from the
// export cannot inject markup.
var bodyTemplate = template.Must(template.New("body").Parse(
	`{{if .MapURL}}<img src="{{.MapURL}}">{{end}}` +
		`{{if or .Pickup .Dropoff}}<ul>` +
		`{{with .Pickup}}<li>{{.}}</li>{{end}}` +
		`{{with .Dropoff}}<li>{{.}}</li>{{end}}` +
		`</ul>{{end}}` +
		`{{if .Facts}}<dl>{{range .Facts}}<dt>{{.Label}}</dt><dd>{{.Value}}</dd>{{end}}</dl>{{end}}`,
))

type fact struct {
	Label string
	Value string
}

type bodyData struct {
	MapURL  string
	Pickup  string
	Dropoff string
	Facts   []fact
}

// renderBody lays out the map, the pickup and dropoff lines and the optional
// facts of doc. Facts without a value are left out.
func renderBody(msgs messages.Catalog, doc domain.TripDocument) (string, error) {
	data := bodyData{MapURL: doc.MapURL}
	if doc.PickupAddress != "" {
		data.Pickup = fmt.Sprintf(msgs.Pickup, doc.PickupAddress)
	}
	if doc.DropoffAddress != "" {
		data.Dropoff = fmt.Sprintf(msgs.Dropoff, doc.DropoffAddress)
	}

	if r := doc.Receipt; r != nil {
		if v := r.CarMake.String(); v != "" {
			data.Facts = append(data.Facts, fact{Label: label(r.CarMakeLabel, msgs.CarMake), Value: v})
		}
		if v := r.Duration.String(); v != "" {
			data.Facts = append(data.Facts, fact{Label: label(r.DurationLabel, msgs.Time), Value: v})
		}
		if v := r.Distance.String(); v != "" {
			data.Facts = append(data.Facts, fact{Label: label(r.DistanceLabel, msgs.Distance), Value: v})
		}
	}
	if doc.DriverName != "" {
		data.Facts = append(data.Facts, fact{Label: msgs.Driver, Value: doc.DriverName})
	}
	if doc.Fare != nil {
		data.Facts = append(data.Facts, fact{Label: msgs.Fare, Value: doc.Fare.Currency + " " + doc.Fare.Amount})
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return buf.String(), nil
}

// label prefers the label shipped in the receipt, with its first letter
// upper-cased, over the catalog default.
func label(fromReceipt, fallback string) string {
	if fromReceipt == "" {
		return fallback
	}
	r, size := utf8.DecodeRuneInString(fromReceipt)
	return string(unicode.ToUpper(r)) + fromReceipt[size:]
}
