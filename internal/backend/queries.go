package backend

const stopFields = `
        __typename
        ... on DriverStopEstimationEvent {
          arrival
        }
        ... on DriverStopEstimationReservation {
          idReservation
          isDropoff
          passengers
          location {
            address {
              main
              sub
            }
            coords {
              lat
              lng
            }
          }
        }`

const assignmentFields = `
      pickedUp
      dest {` + stopFields + `
      }
      queue {` + stopFields + `
      }`

const driverPingMutation = `mutation DriverPing($idEvent: Uuid!, $idDriver: Int!, $location: FormLatLng!) {
  drivers {
    ping(idEvent: $idEvent, idDriver: $idDriver, location: $location) {` + assignmentFields + `
    }
  }
}`

const acceptReservationMutation = `mutation AcceptReservation($idDriver: Int!, $idReservation: Uuid!) {
  drivers {
    acceptReservation(idDriver: $idDriver, idReservation: $idReservation) {` + assignmentFields + `
    }
  }
}`

const confirmPickupMutation = `mutation ConfirmPickup($idEvent: Uuid!, $idDriver: Int!) {
  drivers {
    confirmPickup(idEvent: $idEvent, idDriver: $idDriver) {` + assignmentFields + `
    }
  }
}`

const confirmDropoffMutation = `mutation ConfirmDropoff($idEvent: Uuid!, $idDriver: Int!) {
  drivers {
    confirmDropoff(idEvent: $idEvent, idDriver: $idDriver) {` + assignmentFields + `
    }
  }
}`

const availableReservationQuery = `query GetAvaliableReservation($id: Uuid!, $idDriver: Int!) {
  events {
    get(id: $id) {
      avaliableReservation(idDriver: $idDriver) {
        id
        madeAt
        passengerCount
        isDropoff
        stops {
          locationLat
          locationLng
          address {
            main
            sub
          }
        }
      }
    }
  }
}`

const adminEventQuery = `query GetAdminEvent($id: Uuid!) {
  events {
    get(id: $id) {
      id
      name
      location {
        label
        locationLat
        locationLng
      }
      drivers {
        id
        phone
      }
    }
  }
}`

const updateEventDriverMutation = `mutation UpdateEventDriver($phone: Phone!, $idEvent: Uuid!, $form: FormEventDriver!) {
  orgs {
    updateEventDriver(phone: $phone, idEvent: $idEvent, form: $form) {
      id
    }
  }
}`

const verifyOTPMutation = `mutation VerifyOTP($phone: Phone!, $code: String!) {
  auth {
    verifyOtp(phone: $phone, code: $code)
  }
}`

const updateAccountMutation = `mutation UpdateAccount($name: String!) {
  users {
    meUpdate(form: {name: $name}) {
      name
    }
  }
}`
