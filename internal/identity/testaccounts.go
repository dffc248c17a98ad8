package identity

import (
	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/google/uuid"
)

// TestAccount is a named development login. Dev quick-login signs in with
// these credentials so the normal SignIn path is still exercised.
type TestAccount struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	Role     user.Role `json:"role"`
	Name     string    `json:"name"`
	NimNip   string    `json:"nim_nip"`
}

var testAccountNamespace = uuid.MustParse("5b0f7c2e-3a4d-4c59-9a53-1f7f0e6a2b11")

func testAccount(email, password string, role user.Role, name, nimNip string) TestAccount {
	return TestAccount{
		ID:       uuid.NewSHA1(testAccountNamespace, []byte(email)).String(),
		Email:    email,
		Password: password,
		Role:     role,
		Name:     name,
		NimNip:   nimNip,
	}
}

// TestAccounts returns the fixed development accounts, one per role.
func TestAccounts() []TestAccount {
	return []TestAccount{
		testAccount("admin@akbid.com", "admin123", user.RoleAdmin, "Administrator", "ADM001"),
		testAccount("dosen@akbid.com", "dosen123", user.RoleDosen, "Dr. Siti Nurhaliza", "DSN001"),
		testAccount("laboran@akbid.com", "laboran123", user.RoleLaboran, "Ahmad Laboratorium", "LAB001"),
		testAccount("mahasiswa@akbid.com", "mahasiswa123", user.RoleMahasiswa, "Siti Mahasiswa", "2024001"),
		testAccount("dev@akbid.com", "dev123", user.RoleDevSuper, "Developer Super Admin", "DEV001"),
	}
}

func FindTestAccount(accounts []TestAccount, role user.Role) (TestAccount, bool) {
	for _, a := range accounts {
		if a.Role == role {
			return a, true
		}
	}
	return TestAccount{}, false
}
