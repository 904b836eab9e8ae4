// Package storage owns the on-disk layout of stored and temporary files.
//
// Stored files live at {storage_dir}/{id}.{ext} and hold the (possibly
// encrypted) bytes of a catalog item. Temporary playable files live at
// {temp_dir}/temp.{ext}, one per file kind, and are overwritten whenever a
// new item of that kind is prepared.
package storage
