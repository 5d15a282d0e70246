// Package bom contains the Component Graph bounded context.
// It models composite products as a graph of Bill of Materials (BOM) lines and
// computes how many units of a composite product can actually be sold.
//
// Key concepts:
//   - Product: a sellable storefront product or variation, identified by ProductKey
//   - ComponentReference: tagged union of ExternalProduct, InternalStockItem and SupplierItem
//   - BillOfMaterials: the ordered recipe of BOMLines for one ProductKey
//   - Graph: an immutable in-memory snapshot of an account's catalog
//   - Calculator: pure effective stock computation with cycle detection
package bom
