// Package config loads declarative strategy documents written in HCL and
// translates them into the intermediate representation the engine
// registers and executes.
//
// A document holds labeled strategy blocks. Each strategy block holds an
// ordered sequence of labeled step blocks:
//
//	strategy "whole_disk_with_swap" {
//	  inherits    = "use_whole_disk"
//	  description = "Whole-disk layout with a dedicated swap partition"
//
//	  step "create-partition" {
//	    disk     = "root_disk"
//	    id       = "swap"
//	    role     = "swap"
//	    type     = "linux-swap"
//	    min_size = "4GiB"
//	    max_size = "8GiB"
//	  }
//	}
//
//	strategy "use_whole_disk" {
//	  step "find-disk" {
//	    name     = "root_disk"
//	    min_size = "30GB"
//	  }
//
//	  step "create-partition-table" {
//	    disk = "root_disk"
//	    type = "gpt"
//	  }
//	}
//
// Step kinds are find-disk, create-partition-table, create-partition and
// find-partition. Sizes use integer quantities with decimal (KB, MB, GB,
// TB) or binary (KiB, MiB, GiB, TiB) unit suffixes; max_size is optional
// and omitting it leaves the size unbounded above. Partition types accept
// the symbolic names efi-system-partition, linux-extended-boot,
// linux-swap and linux-fs, or a raw GPT type GUID.
//
// The loader accepts single files or directories, visiting directory
// entries in sorted order, and can watch the loaded paths for changes.
package config
