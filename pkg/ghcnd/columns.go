// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package ghcnd

// Column describes one column of a source table or of the data asset.
type Column struct {
	Name        string
	Description string
	Type        string
}

// Column names shared by the observation and station tables.
const (
	ColID         = "ID"
	ColDate       = "YEAR/MONTH/DAY"
	ColElement    = "ELEMENT"
	ColValue      = "DATA VALUE"
	ColMFlag      = "M-FLAG"
	ColQFlag      = "Q-FLAG"
	ColSFlag      = "S-FLAG"
	ColObsTime    = "OBS-TIME"
	ColLatitude   = "LATITUDE"
	ColLongitude  = "LONGITUDE"
	ColElevation  = "ELEVATION"
	ColState      = "STATE"
	ColName       = "NAME"
	ColGSNFlag    = "GSN FLAG"
	ColHCNCRNFlag = "HCN/CRN FLAG"
	ColWMOID      = "WMO ID"
	ColGeometry   = "geometry"
)

// DataColumns is the layout of a headerless by_year CSV file.
var DataColumns = []Column{
	{ColID, "11 character station identification code.", "str"},
	{ColDate, "8 character date in YYYYMMDD format (e.g. 19860529 = May 29, 1986).", "str"},
	{ColElement, "4 character indicator of element type.", "str"},
	{ColValue, "5 character data value for ELEMENT.", "int"},
	{ColMFlag, "1 character Measurement Flag.", "str"},
	{ColQFlag, "1 character Quality Flag.", "str"},
	{ColSFlag, "1 character Source Flag.", "str"},
	{ColObsTime, "4-character time of observation in hour-minute format (i.e. 0700 = 7:00 am).", "str"},
}

// StationColumns is the layout of ghcnd-stations.txt.
var StationColumns = []Column{
	{ColID, "11 character station identification code.", "str"},
	{ColLatitude, "Latitude of the station (in decimal degrees).", "float"},
	{ColLongitude, "Longitude of the station (in decimal degrees).", "float"},
	{ColElevation, "Elevation of the station (in meters, missing = -999.9).", "float"},
	{ColState, "U.S. postal code for the state (for U.S. stations only).", "str"},
	{ColName, "The name of the station.", "str"},
	{ColGSNFlag, "A flag that indicates whether the station is part of the GCOS Surface Network (GSN).", "str"},
	{ColHCNCRNFlag, "A flag that indicates whether the station is part of the U.S. Historical Climatology Network (HCN) or U.S. Climate Reference Network (CRN).", "str"},
	{ColWMOID, "The World Meteorological Organization (WMO) number for the station. If the station has no WMO number (or one has not yet been matched to this station), then the field is blank.", "str"},
}

// GeometryColumn is the point geometry appended to every joined row.
var GeometryColumn = Column{ColGeometry, "Location of measurement.", "geometry"}

// AssetColumns returns the columns of the joined data asset: observation
// columns, station columns without the join key, then geometry.
func AssetColumns() []Column {
	cols := make([]Column, 0, len(DataColumns)+len(StationColumns))
	cols = append(cols, DataColumns...)
	for _, c := range StationColumns {
		if c.Name == ColID {
			continue
		}
		cols = append(cols, c)
	}
	return append(cols, GeometryColumn)
}

// DescribeColumn returns the documented description of the named asset column.
func DescribeColumn(name string) (Column, bool) {
	for _, c := range AssetColumns() {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// CoreElements are the five elements reported by most stations.
var CoreElements = []string{"PRCP", "SNOW", "SNWD", "TMAX", "TMIN"}

// DescribeElement returns the meaning of an element code. Members of the
// soil temperature and weather type families resolve to their family entry.
func DescribeElement(code string) (string, bool) {
	if d, ok := Elements[code]; ok {
		return d, true
	}
	if len(code) == 4 {
		for _, family := range []string{code[:2] + "*#", code[:2] + "**"} {
			if d, ok := Elements[family]; ok {
				return d, true
			}
		}
	}
	return "", false
}

// Elements maps element codes to their meaning and unit.
var Elements = map[string]string{
	"PRCP": "Precipitation (tenths of mm)",
	"SNOW": "Snowfall (mm)",
	"SNWD": "Snow depth (mm)",
	"TMAX": "Maximum temperature (tenths of degrees C)",
	"TMIN": "Minimum temperature (tenths of degrees C)",
	"ACMC": "Average cloudiness midnight to midnight from 30-second ceilometer data (percent)",
	"ACMH": "Average cloudiness midnight to midnight from manual observations (percent)",
	"ACSC": "Average cloudiness sunrise to sunset from 30-second ceilometer data (percent)",
	"ACSH": "Average cloudiness sunrise to sunset from manual observations (percent)",
	"AWDR": "Average daily wind direction (degrees)",
	"AWND": "Average daily wind speed (tenths of meters per second)",
	"DAEV": "Number of days included in the multiday evaporation total (MDEV)",
	"DAPR": "Number of days included in the multiday precipitation total (MDPR)",
	"DASF": "Number of days included in the multiday snowfall total (MDSF)",
	"DATN": "Number of days included in the multiday minimum temperature (MDTN)",
	"DATX": "Number of days included in the multiday maximum temperature (MDTX)",
	"DAWM": "Number of days included in the multiday wind movement (MDWM)",
	"DWPR": "Number of days with non-zero precipitation included in multiday precipitation total (MDPR)",
	"EVAP": "Evaporation of water from evaporation pan (tenths of mm)",
	"FMTM": "Time of fastest mile or fastest 1-minute wind (hours and minutes, i.e., HHMM)",
	"FRGB": "Base of frozen ground layer (cm)",
	"FRGT": "Top of frozen ground layer (cm)",
	"FRTH": "Thickness of frozen ground layer (cm)",
	"GAHT": "Difference between river and gauge height (cm)",
	"MDEV": "Multiday evaporation total (tenths of mm; use with DAEV)",
	"MDPR": "Multiday precipitation total (tenths of mm; use with DAPR and DWPR, if available)",
	"MDSF": "Multiday snowfall total",
	"MDTN": "Multiday minimum temperature (tenths of degrees C; use with DATN)",
	"MDTX": "Multiday maximum temperature (tenths of degrees C; use with DATX)",
	"MDWM": "Multiday wind movement (km)",
	"MNPN": "Daily minimum temperature of water in an evaporation pan (tenths of degrees C)",
	"MXPN": "Daily maximum temperature of water in an evaporation pan (tenths of degrees C)",
	"PGTM": "Peak gust time (hours and minutes, i.e., HHMM)",
	"PSUN": "Daily percent of possible sunshine (percent)",
	"SN*#": "Minimum soil temperature (tenths of degrees C) where * corresponds to a code for ground cover and # corresponds to a code for soil depth. See metadata for codes.",
	"SX*#": "Maximum soil temperature (tenths of degrees C) where * corresponds to a code for ground cover and # corresponds to a code for soil depth. See metadata for codes.",
	"TAVG": "Average temperature (tenths of degrees C)",
	"THIC": "Thickness of ice on water (tenths of mm)",
	"TOBS": "Temperature at the time of observation (tenths of degrees C)",
	"TSUN": "Daily total sunshine (minutes)",
	"WDF1": "Direction of fastest 1-minute wind (degrees)",
	"WDF2": "Direction of fastest 2-minute wind (degrees)",
	"WDF5": "Direction of fastest 5-second wind (degrees)",
	"WDFG": "Direction of peak wind gust (degrees)",
	"WDFI": "Direction of highest instantaneous wind (degrees)",
	"WDFM": "Fastest mile wind direction (degrees)",
	"WDMV": "24-hour wind movement (km)",
	"WESD": "Water equivalent of snow on the ground (tenths of mm)",
	"WESF": "Water equivalent of snowfall (tenths of mm)",
	"WSF1": "Fastest 1-minute wind speed (tenths of meters per second)",
	"WSF2": "Fastest 2-minute wind speed (tenths of meters per second)",
	"WSF5": "Fastest 5-second wind speed (tenths of meters per second)",
	"WSFG": "Peak gust wind speed (tenths of meters per second)",
	"WSFI": "Highest instantaneous wind speed (tenths of meters per second)",
	"WSFM": "Fastest mile wind speed (tenths of meters per second)",
	"WT**": "Weather Type, see metadata for ** categories",
	"WV**": "Weather in the Vicinity, see metadata for ** categories",
}
