package maps

import "fixmate_backend/platform/geo"

// LookupRequest is the admin address search query.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3"`
}

// Place is a geocoded address.
type Place struct {
	Label    string    `json:"label"`
	Street   string    `json:"street,omitempty"`
	Suburb   string    `json:"suburb,omitempty"`
	City     string    `json:"city,omitempty"`
	Postcode string    `json:"postcode,omitempty"`
	Location geo.Point `json:"location"`
}

type nominatimAddress struct {
	Road          string `json:"road"`
	HouseNumber   string `json:"house_number"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	Postcode      string `json:"postcode"`
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Municipality  string `json:"municipality"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}
