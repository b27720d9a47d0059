/*Package interval answers membership queries against unions of genomic
  intervals, such as the region blacklists distributed as BED files.
  Overlapping and touching intervals merge on load and empty ones vanish,
  so every query reduces to a binary search over sorted endpoints.
  Coordinates must fit in a PosType, an int32, matching the BAM limit.
  A loaded union is immutable and may be queried from any goroutine.
*/
package interval
