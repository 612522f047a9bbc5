package external

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"citabot.app/internal/ports"
)

// The booking site serializes PHP arrays, so the same field may arrive as a
// JSON object keyed by index or as a plain list. Decoders here accept both
// and treat anything unexpected as empty.

type monthPayload struct {
	OpenDays     json.RawMessage `json:"get_open_days"`
	ServicePrice json.RawMessage `json:"service_price"`
	InstanceCode json.RawMessage `json:"instanceCode"`
}

type dayPayload struct {
	DaySlots   json.RawMessage `json:"get_day_slots"`
	HourPrices json.RawMessage `json:"get-hour-prices"`
}

type hourDebugPayload struct {
	SelectedTime     json.RawMessage `json:"selectedTime"`
	RealSelectedTime json.RawMessage `json:"realSelectedTime"`
}

type groupStartupPayload struct {
	Groups json.RawMessage `json:"groups"`
}

type groupPayload struct {
	Name   json.RawMessage `json:"name"`
	Level2 json.RawMessage `json:"level2"`
}

type level2Payload struct {
	Name   json.RawMessage `json:"name"`
	Stores json.RawMessage `json:"stores"`
}

type storePayload struct {
	Name              json.RawMessage `json:"name"`
	Store             json.RawMessage `json:"store"`
	ShortDescription  json.RawMessage `json:"short_description"`
	FirstAvailability json.RawMessage `json:"first_availability"`
	InstanceCode      json.RawMessage `json:"instanceCode"`
}

func decodeMonth(body []byte) ports.MonthAvailability {
	var p monthPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ports.MonthAvailability{}
	}

	month := ports.MonthAvailability{InstanceCode: rawString(p.InstanceCode)}
	for _, v := range rawValues(p.OpenDays) {
		if s, ok := rawStringOK(v); ok {
			month.OpenDays = append(month.OpenDays, s)
		}
	}
	if price, ok := rawFloat(p.ServicePrice); ok {
		month.BasePrice = &price
	}
	return month
}

func decodeDay(body []byte) ports.DayAvailability {
	var p dayPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ports.DayAvailability{}
	}

	day := ports.DayAvailability{Prices: map[string]float64{}}
	for _, v := range rawValues(p.DaySlots) {
		// slot groups are either bare ids or lists of ids
		if s, ok := rawStringOK(v); ok {
			day.SlotIDs = append(day.SlotIDs, s)
			continue
		}
		for _, inner := range rawValues(v) {
			if s, ok := rawStringOK(inner); ok {
				day.SlotIDs = append(day.SlotIDs, s)
			}
		}
	}

	prices := p.HourPrices
	// usually a JSON document embedded in a string
	if s, ok := rawStringOK(prices); ok {
		prices = json.RawMessage(s)
	}
	var priceMap map[string]json.RawMessage
	if err := json.Unmarshal(prices, &priceMap); err == nil {
		for id, raw := range priceMap {
			if f, ok := rawFloat(raw); ok {
				day.Prices[id] = f
			}
		}
	}
	return day
}

func decodeHourDebug(body []byte) string {
	var p hourDebugPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return ""
	}
	if s := rawString(p.SelectedTime); s != "" {
		return s
	}
	return rawString(p.RealSelectedTime)
}

// decodeStations flattens groups → level2 (station type) → stores
func decodeStations(body []byte) []ports.StationData {
	var p groupStartupPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil
	}

	var stations []ports.StationData
	for _, rawGroup := range rawValues(p.Groups) {
		var group groupPayload
		if json.Unmarshal(rawGroup, &group) != nil {
			continue
		}
		province := rawString(group.Name)

		for _, rawLevel := range rawValues(group.Level2) {
			var level level2Payload
			if json.Unmarshal(rawLevel, &level) != nil {
				continue
			}
			stationType := rawString(level.Name)

			for _, rawStore := range rawValues(level.Stores) {
				var store storePayload
				if json.Unmarshal(rawStore, &store) != nil {
					continue
				}
				id := rawString(store.Store)
				if id == "" {
					continue
				}
				stations = append(stations, ports.StationData{
					StationID:         id,
					Name:              rawString(store.Name),
					Province:          province,
					Type:              stationType,
					Address:           rawString(store.ShortDescription),
					InstanceCode:      rawString(store.InstanceCode),
					FirstAvailability: rawOptionalString(store.FirstAvailability),
				})
			}
		}
	}
	return stations
}

// findInstanceCode walks any JSON document for an "instanceCode" key with a
// plausible value
func findInstanceCode(body []byte) string {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	return walkInstanceCode(doc)
}

func walkInstanceCode(node interface{}) string {
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if s, ok := v[k].(string); ok && k == "instanceCode" && len(s) >= minJSONInstanceCodeLength {
				return s
			}
		}
		for _, k := range keys {
			if found := walkInstanceCode(v[k]); found != "" {
				return found
			}
		}
	case []interface{}:
		for _, item := range v {
			if found := walkInstanceCode(item); found != "" {
				return found
			}
		}
	}
	return ""
}

// rawValues returns the elements of a JSON array or the values of a JSON
// object ordered by key (numerically when keys are indices)
func rawValues(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if json.Unmarshal(raw, &list) != nil {
			return nil
		}
		return list
	case '{':
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			return keys[i] < keys[j]
		})
		values := make([]json.RawMessage, 0, len(keys))
		for _, k := range keys {
			values = append(values, obj[k])
		}
		return values
	default:
		return nil
	}
}

func rawStringOK(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// rawString renders strings and numbers as text; anything else is ""
func rawString(raw json.RawMessage) string {
	if s, ok := rawStringOK(raw); ok {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// rawOptionalString keeps the distinction between an absent/null field and a
// present one; false becomes "false"
func rawOptionalString(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	switch string(raw) {
	case "false", "true":
		s = string(raw)
	default:
		s = rawString(raw)
	}
	return &s
}

func rawFloat(raw json.RawMessage) (float64, bool) {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f, true
	}
	if s, ok := rawStringOK(raw); ok {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}
