// Package pager owns the fixed-size page table. It allocates pages to
// processes all-or-nothing, frees them and compacts the table so that
// occupied slots sit at the low end in their original relative order.
package pager
