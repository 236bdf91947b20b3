// Package messages holds the user-visible strings of the importer: post
// title and body templates plus the import page text. Defaults are English;
// a YAML file can override any subset of them.
package messages

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Catalog is the set of localizable strings. Fields tagged fmtargs=N are fmt
// templates taking N string arguments; explicit indexes such as %[2]s let a
// translation reorder them.
type Catalog struct {
	Title   string `yaml:"title" validate:"required,fmtargs=2"`
	Pickup  string `yaml:"pickup" validate:"required,fmtargs=1"`
	Dropoff string `yaml:"dropoff" validate:"required,fmtargs=1"`

	CarMake  string `yaml:"car_make" validate:"required"`
	Time     string `yaml:"time" validate:"required"`
	Distance string `yaml:"distance" validate:"required"`
	Driver   string `yaml:"driver" validate:"required"`
	Fare     string `yaml:"fare" validate:"required"`

	DriverPerson string `yaml:"driver_person" validate:"required,fmtargs=1"`

	Heading      string   `yaml:"heading" validate:"required"`
	Intro        string   `yaml:"intro" validate:"required"`
	HowTo        string   `yaml:"how_to" validate:"required"`
	Steps        []string `yaml:"steps" validate:"required,min=1,dive,required"`
	Importing    string   `yaml:"importing" validate:"required,fmtargs=1"`
	Failed       string   `yaml:"failed" validate:"required,fmtargs=1"`
	UploadError  string   `yaml:"upload_error" validate:"required"`
	AllDone      string   `yaml:"all_done" validate:"required"`
	HaveFun      string   `yaml:"have_fun" validate:"required"`
	SubmitButton string   `yaml:"submit_button" validate:"required"`
}

// Default returns the built-in English catalog.
func Default() Catalog {
	return Catalog{
		Title:   "Rode %s in %s",
		Pickup:  "Pickup: %s",
		Dropoff: "Dropoff: %s",

		CarMake:  "Car Make",
		Time:     "Time",
		Distance: "Distance",
		Driver:   "Driver",
		Fare:     "Fare",

		DriverPerson: "Driver %s",

		Heading: "Import RideShare",
		Intro:   "Upload your RideShare JSON to import rides into this site.",
		HowTo:   "How to get the JSON export?",
		Steps: []string{
			"Install the RideShareStats browser extension.",
			"Go to your Uber rider history at https://riders.uber.com/trips.",
			"Run the extension from the browser toolbar.",
			`When asked "Request individual trip data?", pick "YES".`,
			"A new RideShare Stats page will open once all data is downloaded.",
			`At the bottom of the page, use the "Export" button with option "JSON (Full Data)".`,
			"Upload your JSON file here.",
		},
		Importing:    "Importing %s.",
		Failed:       "Failed to import %s",
		UploadError:  "Sorry, there has been an error.",
		AllDone:      "All done.",
		HaveFun:      "Have fun!",
		SubmitButton: "Upload file and import",
	}
}

// Load reads a YAML file over the default catalog, so the file only needs the
// keys it changes, and validates the result. An empty path returns Default.
func Load(path string) (Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("messages.Load: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("messages.Load: parse %s: %w", path, err)
	}
	if err := validate.Struct(c); err != nil {
		return Catalog{}, fmt.Errorf("messages.Load: %s: %w", path, err)
	}
	return c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("fmtargs", fmtArgs); err != nil {
		panic("messages: register fmtargs: " + err.Error())
	}
	return v
}

// fmtArgs formats the field with as many distinct sample arguments as the tag
// asks for. The template is valid when fmt reports no %! error and every
// sample shows up in the output.
func fmtArgs(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil || n < 0 {
		return false
	}
	samples := make([]string, n)
	args := make([]any, n)
	for i := range samples {
		samples[i] = "\x00arg" + strconv.Itoa(i+1) + "\x00"
		args[i] = samples[i]
	}
	out := fmt.Sprintf(fl.Field().String(), args...)
	if strings.Contains(out, "%!") {
		return false
	}
	for _, s := range samples {
		if !strings.Contains(out, s) {
			return false
		}
	}
	return true
}
