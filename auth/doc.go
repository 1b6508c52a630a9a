/*
Package auth is for authentication and authorization primitives. It contains the capability set carried by every account, password hashing and the normalization of login names.

Capabilities

An account holds zero or more capabilities:

  Approved   the account may log in, submit content and read active content
  Approver   the account may approve or reject pending content ("is_user" in the JSON representation)
  Superuser  the account may approve other accounts

Approver and Superuser imply Approved. There is no way to grant one without the other, so an unapproved approver can't exist.

Superuser does not imply Approver. Both of them can approve content, see Capabilities.CanApprove.
*/
package auth
