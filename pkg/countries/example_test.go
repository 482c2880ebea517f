package countries_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/countrymap/pkg/countries"
)

func ExampleFilter() {
	doc := `{"countries": {"country": [
	  {"countryCode": "FI", "countryName": "Finland", "requests": "42"},
	  {"countryCode": "IE", "countryName": "Ireland", "requests": "9"},
	  {"countryCode": "SE", "countryName": "Sweden", "requests": "17"}
	]}}`
	metrics, _ := countries.Decode(strings.NewReader(doc))

	for _, m := range countries.Filter("LAND", metrics) {
		fmt.Println(m.CountryName, m.Requests)
	}
	// Output:
	// Finland 42
	// Ireland 9
}
