package intrinsics

import (
	"math"
	"time"

	"github.com/octofhir/otter-vm/internal/interp"
	"github.com/octofhir/otter-vm/internal/jsobject"
	"github.com/octofhir/otter-vm/internal/jsvalue"
)

// datePayloads backs every Date instance with its internal [[DateValue]]
// slot (milliseconds since the epoch, possibly NaN for an invalid
// date), stored in a per-object side table like the one mapset.go uses
// for Map/Set entries rather than a dedicated CellKind - Date has exactly
// one internal slot, not enough to justify its own heap cell layout.
var datePayloads = map[*jsobject.Object]float64{}

func dateValueOf(o *jsobject.Object) float64 {
	v, ok := datePayloads[o]
	if !ok {
		return math.NaN()
	}
	return v
}

func setDateValue(o *jsobject.Object, ms float64) { datePayloads[o] = ms }

// populateDate builds Date.prototype's getters/setters/toString family
// and the Date constructor (new Date(), new Date(ms), new Date(y,m,...),
// new Date(isoString), plus the static Date.now()/Date.parse()/
// Date.UTC()), following the same defineMethod/newConstructor shape
// every other populate* file in this package uses.
func (r *Realm) populateDate() {
	t := r.t
	proto := r.DateProto

	r.dateCtor = r.newConstructor("Date", 7, proto, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, newTarget jsvalue.Value) (jsvalue.Value, error) {
		if newTarget.IsUndefined() {
			return t.StringValue(time.Now().UTC().Format(time.RFC3339)), nil
		}
		v := newPlainObject(t, proto)
		obj, _ := t.Heap.Object(v)
		setDateValue(obj, dateValueFromArgs(t, args))
		return v, nil
	})
	r.staticMethod(r.dateCtor, "now", 0, func(t *interp.VmThread, _ jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(float64(time.Now().UnixNano()) / 1e6), nil
	})
	r.staticMethod(r.dateCtor, "parse", 1, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(parseDateString(t.ToString(arg(args, 0)))), nil
	})
	r.staticMethod(r.dateCtor, "UTC", 7, func(t *interp.VmThread, _ jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		return jsvalue.Number(dateValueFromComponents(t, args, true)), nil
	})

	getMs := func(name string, fn func(time.Time) float64) {
		defineMethod(t, proto, name, 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			o := thisObject(t, this, name)
			ms := dateValueOf(o)
			if math.IsNaN(ms) {
				return jsvalue.NaN, nil
			}
			return jsvalue.Number(fn(msToTime(ms))), nil
		})
	}
	getMs("getTime", func(tm time.Time) float64 { return float64(tm.UnixNano()) / 1e6 })
	getMs("valueOf", func(tm time.Time) float64 { return float64(tm.UnixNano()) / 1e6 })
	getMs("getFullYear", func(tm time.Time) float64 { return float64(tm.Year()) })
	getMs("getUTCFullYear", func(tm time.Time) float64 { return float64(tm.Year()) })
	getMs("getMonth", func(tm time.Time) float64 { return float64(tm.Month() - 1) })
	getMs("getUTCMonth", func(tm time.Time) float64 { return float64(tm.Month() - 1) })
	getMs("getDate", func(tm time.Time) float64 { return float64(tm.Day()) })
	getMs("getUTCDate", func(tm time.Time) float64 { return float64(tm.Day()) })
	getMs("getDay", func(tm time.Time) float64 { return float64(tm.Weekday()) })
	getMs("getUTCDay", func(tm time.Time) float64 { return float64(tm.Weekday()) })
	getMs("getHours", func(tm time.Time) float64 { return float64(tm.Hour()) })
	getMs("getUTCHours", func(tm time.Time) float64 { return float64(tm.Hour()) })
	getMs("getMinutes", func(tm time.Time) float64 { return float64(tm.Minute()) })
	getMs("getUTCMinutes", func(tm time.Time) float64 { return float64(tm.Minute()) })
	getMs("getSeconds", func(tm time.Time) float64 { return float64(tm.Second()) })
	getMs("getUTCSeconds", func(tm time.Time) float64 { return float64(tm.Second()) })
	getMs("getMilliseconds", func(tm time.Time) float64 { return float64(tm.Nanosecond() / 1e6) })
	getMs("getUTCMilliseconds", func(tm time.Time) float64 { return float64(tm.Nanosecond() / 1e6) })
	getMs("getTimezoneOffset", func(tm time.Time) float64 { return 0 })

	defineMethod(t, proto, "setTime", 1, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "setTime")
		ms := t.ToNumber(arg(args, 0))
		setDateValue(o, ms)
		return jsvalue.Number(ms), nil
	})

	defineMethod(t, proto, "toISOString", 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "toISOString")
		ms := dateValueOf(o)
		if math.IsNaN(ms) {
			t.ThrowTypeError("Invalid time value")
		}
		return t.StringValue(msToTime(ms).UTC().Format("2006-01-02T15:04:05.000Z")), nil
	})
	defineMethod(t, proto, "toJSON", 0, func(t *interp.VmThread, this jsvalue.Value, args []jsvalue.Value, nt jsvalue.Value) (jsvalue.Value, error) {
		o := thisObject(t, this, "toJSON")
		if math.IsNaN(dateValueOf(o)) {
			return jsvalue.Null, nil
		}
		return t.StringValue(msToTime(dateValueOf(o)).UTC().Format("2006-01-02T15:04:05.000Z")), nil
	})
	toStr := func(name string, layout string) {
		defineMethod(t, proto, name, 0, func(t *interp.VmThread, this jsvalue.Value, _ []jsvalue.Value, _ jsvalue.Value) (jsvalue.Value, error) {
			o := thisObject(t, this, name)
			ms := dateValueOf(o)
			if math.IsNaN(ms) {
				return t.StringValue("Invalid Date"), nil
			}
			return t.StringValue(msToTime(ms).UTC().Format(layout)), nil
		})
	}
	toStr("toString", "Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
	toStr("toDateString", "Mon Jan 02 2006")
	toStr("toTimeString", "15:04:05 GMT+0000 (Coordinated Universal Time)")
	toStr("toUTCString", "Mon, 02 Jan 2006 15:04:05 GMT")
	toStr("toLocaleDateString", "1/2/2006")
	toStr("toLocaleTimeString", "15:04:05")
	toStr("toLocaleString", "1/2/2006, 15:04:05")
}

func msToTime(ms float64) time.Time {
	return time.Unix(0, int64(ms*1e6)).UTC()
}

// dateValueFromArgs implements the multi-overload `new Date(...)`
// constructor: no args (now), one numeric arg (epoch ms), one string
// arg (ISO parse), or 2+ numeric components (y/m/d/h/mi/s/ms, taken as
// UTC; this engine's local time zone is UTC).
func dateValueFromArgs(t *interp.VmThread, args []jsvalue.Value) float64 {
	switch len(args) {
	case 0:
		return float64(time.Now().UnixNano()) / 1e6
	case 1:
		v := args[0]
		if _, ok := t.Heap.String(v); ok {
			return parseDateString(t.ToString(v))
		}
		return t.ToNumber(v)
	default:
		return dateValueFromComponents(t, args, false)
	}
}

func dateValueFromComponents(t *interp.VmThread, args []jsvalue.Value, utc bool) float64 {
	get := func(i int, def int) int {
		if i >= len(args) {
			return def
		}
		return int(t.ToNumber(args[i]))
	}
	year := get(0, 1970)
	if year >= 0 && year <= 99 {
		year += 1900
	}
	month := get(1, 0)
	day := get(2, 1)
	hour := get(3, 0)
	min := get(4, 0)
	sec := get(5, 0)
	msPart := get(6, 0)
	tm := time.Date(year, time.Month(month+1), day, hour, min, sec, msPart*1e6, time.UTC)
	return float64(tm.UnixNano()) / 1e6
}

func parseDateString(s string) float64 {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
		time.RFC1123,
		"Mon Jan 02 2006 15:04:05 GMT-0700 (MST)",
	}
	for _, layout := range layouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return float64(tm.UnixNano()) / 1e6
		}
	}
	return math.NaN()
}
