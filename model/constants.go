package model

// DateLayout is how dates are typed on the command line and used in period labels.
const DateLayout = "2006-01-02"

// APIDateLayout is the AppEEARS request date format.
const APIDateLayout = "01-02-2006"

// OutputFormat is an enum type for AppEEARS raster output formats
type OutputFormat string

// GeoTIFF corresponds to .tif files with geospatial info
const GeoTIFF OutputFormat = "geotiff"

// NetCDF4 corresponds to .nc files
const NetCDF4 OutputFormat = "netcdf4"

// GeographicProjection is the AppEEARS name for EPSG:4326 output.
const GeographicProjection = "geographic"

// SMAPStartDate is the first day of SMAP L4 data, the default start of a run.
const SMAPStartDate = "2015-04-01"
