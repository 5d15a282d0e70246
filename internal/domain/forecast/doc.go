// Package forecast contains the Demand Forecast bounded context.
// Everything here is a pure function over sales history and current stock:
// demand estimation, days until stock-out, risk classification and
// reorder suggestions.
package forecast
