package vtop

import "vtop-backend/lib/htmlutil"

// ExtractProfile reads the student profile card, fields missing from the
// card are left empty.
func ExtractProfile(body []byte) (Profile, error) {
	doc, err := parse(body)
	if err != nil {
		return Profile{}, err
	}
	content := doc.Find("div.content").First()
	if content.Length() == 0 {
		return Profile{}, anchorNotFound("div.content")
	}

	return Profile{
		Name:               htmlutil.Text(content.Find("p").First()),
		RegistrationNumber: htmlutil.Text(content.Find(`label[for="no"]`).First()),
		BranchName:         htmlutil.Text(content.Find(`label[for="branchno"]`).First()),
	}, nil
}
