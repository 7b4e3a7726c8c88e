package model

// Restaurant is reference data owned by the admin side.
type Restaurant struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         *string `json:"phone,omitempty"`
	Timezone      string  `json:"timezone"`
	Address       *string `json:"address,omitempty"`
	LocaleDefault string  `json:"locale_default"`
}
